package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
	"gorm.io/gorm"
)

// MaxThreadLength bounds thread and reply bodies, in runes.
const MaxThreadLength = 500

// CreateThreadRequest is the payload for posting a new thread
type CreateThreadRequest struct {
	Content       string  `json:"content"`
	ImageURL      string  `json:"image_url"`
	VideoURL      string  `json:"video_url"`
	QuoteThreadID *string `json:"quote_thread_id"`
}

func validateBody(c *gin.Context, content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		util.RespondValidationError(c, "content", "content must not be empty")
		return "", false
	}
	if utf8.RuneCountInString(content) > MaxThreadLength {
		util.RespondValidationError(c, "content", "content must be at most 500 characters")
		return "", false
	}
	return content, true
}

// CreateThread posts a new thread for the current user
// POST /api/v1/threads
func (h *Handlers) CreateThread(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid thread payload: "+err.Error())
		return
	}

	content, ok := validateBody(c, req.Content)
	if !ok {
		return
	}

	// Media kind follows the attachment, video taking precedence
	mediaType := models.MediaText
	if req.VideoURL != "" {
		mediaType = models.MediaVideo
	} else if req.ImageURL != "" {
		mediaType = models.MediaImage
	}

	if req.QuoteThreadID != nil && *req.QuoteThreadID != "" {
		var quoted models.Thread
		if err := database.DB.First(&quoted, "id = ?", *req.QuoteThreadID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				util.RespondValidationError(c, "quote_thread_id", "quoted thread does not exist")
				return
			}
			util.RespondUpstream(c, "data store")
			return
		}
	} else {
		req.QuoteThreadID = nil
	}

	thread := models.Thread{
		UserID:        user.ID,
		Content:       content,
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
		MediaType:     mediaType,
		QuoteThreadID: req.QuoteThreadID,
	}

	if err := database.DB.Create(&thread).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	if err := database.DB.Model(user).UpdateColumn("thread_count", gorm.Expr("thread_count + 1")).Error; err != nil {
		logger.WarnWithFields("failed to increment thread count for user "+user.ID, err)
	}

	// Mention notifications are best effort; the thread is already committed
	if err := h.notifier.EmitMentions(c.Request.Context(), user.ID, thread.ID, thread.Content); err != nil {
		logger.WarnWithFields("failed to emit mention notifications for thread "+thread.ID, err)
	}

	thread.User = *user
	c.JSON(http.StatusCreated, gin.H{"thread": thread})
}

// GetThread returns a single thread with engagement counts and viewer flags
// GET /api/v1/threads/:id
func (h *Handlers) GetThread(c *gin.Context) {
	threadID := c.Param("id")
	viewerID := util.ViewerIDFromContext(c)

	var thread models.Thread
	err := database.DB.Preload("User").Preload("QuoteThread").Preload("QuoteThread.User").
		First(&thread, "id = ?", threadID).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	annotated, err := h.aggregator.Annotate(c.Request.Context(), []models.Thread{thread}, viewerID)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": annotated[0]})
}

// DeleteThread removes the current user's thread
// DELETE /api/v1/threads/:id
func (h *Handlers) DeleteThread(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var thread models.Thread
	err := database.DB.First(&thread, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	if thread.UserID != user.ID && !user.IsAdmin {
		util.RespondForbidden(c, "you can only delete your own threads")
		return
	}

	if err := database.DB.Delete(&thread).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	err = database.DB.Model(&models.User{}).Where("id = ?", thread.UserID).
		UpdateColumn("thread_count", gorm.Expr("CASE WHEN thread_count > 0 THEN thread_count - 1 ELSE 0 END")).Error
	if err != nil {
		logger.WarnWithFields("failed to decrement thread count for user "+thread.UserID, err)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
