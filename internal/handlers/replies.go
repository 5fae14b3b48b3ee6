package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
	"gorm.io/gorm"
)

// CreateReplyRequest is the payload for replying to a thread
type CreateReplyRequest struct {
	Content       string  `json:"content"`
	ParentReplyID *string `json:"parent_reply_id"`
}

// CreateReply posts a reply on a thread, optionally nested under another reply
// POST /api/v1/threads/:id/replies
func (h *Handlers) CreateReply(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid reply payload: "+err.Error())
		return
	}

	content, ok := validateBody(c, req.Content)
	if !ok {
		return
	}

	var thread models.Thread
	err := database.DB.First(&thread, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	if req.ParentReplyID != nil && *req.ParentReplyID != "" {
		var parent models.ThreadReply
		if err := database.DB.First(&parent, "id = ? AND thread_id = ?", *req.ParentReplyID, thread.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				util.RespondValidationError(c, "parent_reply_id", "parent reply does not exist on this thread")
				return
			}
			util.RespondUpstream(c, "data store")
			return
		}
	} else {
		req.ParentReplyID = nil
	}

	reply := models.ThreadReply{
		ThreadID:      thread.ID,
		UserID:        user.ID,
		ParentReplyID: req.ParentReplyID,
		Content:       content,
	}

	if err := database.DB.Create(&reply).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	// Notify the thread author, then anyone mentioned in the body
	if err := h.notifier.Emit(c.Request.Context(), thread.UserID, user.ID, models.NotificationReply, &thread.ID); err != nil {
		logger.WarnWithFields("failed to emit reply notification for thread "+thread.ID, err)
	}
	if err := h.notifier.EmitMentions(c.Request.Context(), user.ID, thread.ID, reply.Content); err != nil {
		logger.WarnWithFields("failed to emit mention notifications for reply "+reply.ID, err)
	}

	reply.User = *user
	c.JSON(http.StatusCreated, gin.H{"reply": reply})
}

// GetReplies lists a thread's replies, oldest first, with like counts and
// viewer flags
// GET /api/v1/threads/:id/replies
func (h *Handlers) GetReplies(c *gin.Context) {
	threadID := c.Param("id")
	viewerID := util.ViewerIDFromContext(c)

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 50),
		util.ParseInt(c.Query("offset"), 0),
		100,
	)

	var replies []models.ThreadReply
	err := database.DB.Preload("User").
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&replies).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	annotated, err := h.aggregator.AnnotateReplies(c.Request.Context(), replies, viewerID)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"replies": annotated,
		"limit":   limit,
		"offset":  offset,
	})
}

// ToggleReplyLike likes or unlikes a reply
// POST /api/v1/replies/:id/like
func (h *Handlers) ToggleReplyLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var reply models.ThreadReply
	err := database.DB.First(&reply, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "reply") {
		return
	}

	var existing models.ReplyLike
	err = database.DB.Where("user_id = ? AND reply_id = ?", userID, reply.ID).First(&existing).Error
	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			util.RespondUpstream(c, "data store")
			return
		}
		recordToggle(c, "reply_like", false)
		c.JSON(http.StatusOK, gin.H{"liked": false})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondUpstream(c, "data store")
		return
	}

	like := models.ReplyLike{UserID: userID, ReplyID: reply.ID}
	if err := database.DB.Create(&like).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	recordToggle(c, "reply_like", true)
	c.JSON(http.StatusOK, gin.H{"liked": true})
}
