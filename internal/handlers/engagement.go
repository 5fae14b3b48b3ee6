package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/metrics"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
	"gorm.io/gorm"
)

func recordToggle(c *gin.Context, kind string, on bool) {
	direction := "off"
	if on {
		direction = "on"
	}
	metrics.RecordToggle(kind, direction)
}

// toggleThreadEdge flips one (user, thread) edge on or off. The edge argument
// must be a pointer to a zero edge struct with UserID and ThreadID set.
// Uniqueness is backed by the DB index, so a lost race surfaces as a no-op.
func toggleThreadEdge(c *gin.Context, userID, threadID string, model interface{}, fresh func() interface{}) (bool, bool) {
	err := database.DB.Where("user_id = ? AND thread_id = ?", userID, threadID).First(model).Error
	if err == nil {
		if err := database.DB.Where("user_id = ? AND thread_id = ?", userID, threadID).Delete(model).Error; err != nil {
			util.RespondUpstream(c, "data store")
			return false, false
		}
		return false, true
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondUpstream(c, "data store")
		return false, false
	}

	if err := database.DB.Create(fresh()).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return false, false
	}
	return true, true
}

// ToggleLike likes or unlikes a thread
// POST /api/v1/threads/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var thread models.Thread
	err := database.DB.First(&thread, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	on, ok := toggleThreadEdge(c, userID, thread.ID, &models.ThreadLike{}, func() interface{} {
		return &models.ThreadLike{UserID: userID, ThreadID: thread.ID}
	})
	if !ok {
		return
	}

	if on {
		if err := h.notifier.Emit(c.Request.Context(), thread.UserID, userID, models.NotificationLike, &thread.ID); err != nil {
			logger.WarnWithFields("failed to emit like notification for thread "+thread.ID, err)
		}
	}

	recordToggle(c, "like", on)
	c.JSON(http.StatusOK, gin.H{"liked": on})
}

// ToggleRepost reposts or un-reposts a thread
// POST /api/v1/threads/:id/repost
func (h *Handlers) ToggleRepost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var thread models.Thread
	err := database.DB.First(&thread, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	on, ok := toggleThreadEdge(c, userID, thread.ID, &models.Repost{}, func() interface{} {
		return &models.Repost{UserID: userID, ThreadID: thread.ID}
	})
	if !ok {
		return
	}

	if on {
		if err := h.notifier.Emit(c.Request.Context(), thread.UserID, userID, models.NotificationRepost, &thread.ID); err != nil {
			logger.WarnWithFields("failed to emit repost notification for thread "+thread.ID, err)
		}
	}

	recordToggle(c, "repost", on)
	c.JSON(http.StatusOK, gin.H{"reposted": on})
}

// ToggleBookmark bookmarks or un-bookmarks a thread. Bookmarks are private,
// so no notification is emitted.
// POST /api/v1/threads/:id/bookmark
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var thread models.Thread
	err := database.DB.First(&thread, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "thread") {
		return
	}

	on, ok := toggleThreadEdge(c, userID, thread.ID, &models.Bookmark{}, func() interface{} {
		return &models.Bookmark{UserID: userID, ThreadID: thread.ID}
	})
	if !ok {
		return
	}

	recordToggle(c, "bookmark", on)
	c.JSON(http.StatusOK, gin.H{"bookmarked": on})
}

// GetBookmarks lists the current user's bookmarked threads, newest bookmark
// first
// GET /api/v1/bookmarks
func (h *Handlers) GetBookmarks(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	h.listEdgeThreads(c, userID, "bookmarks", userID)
}

// GetLikedThreads lists a user's liked threads, newest like first
// GET /api/v1/users/:id/likes
func (h *Handlers) GetLikedThreads(c *gin.Context) {
	viewerID := util.ViewerIDFromContext(c)
	h.listEdgeThreads(c, viewerID, "thread_likes", c.Param("id"))
}

// listEdgeThreads pages threads joined through a (user_id, thread_id) edge
// table, ordered by edge creation time descending.
func (h *Handlers) listEdgeThreads(c *gin.Context, viewerID, edgeTable, subjectID string) {
	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		100,
	)

	var threads []models.Thread
	err := database.DB.Preload("User").
		Joins("JOIN "+edgeTable+" ON "+edgeTable+".thread_id = threads.id").
		Where(edgeTable+".user_id = ?", subjectID).
		Order(edgeTable + ".created_at DESC").
		Limit(limit).Offset(offset).
		Find(&threads).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	annotated, err := h.aggregator.Annotate(c.Request.Context(), threads, viewerID)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"threads": annotated,
		"limit":   limit,
		"offset":  offset,
	})
}
