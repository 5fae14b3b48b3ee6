package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
)

// UserProfile is a user plus the viewer-relative follow flag.
type UserProfile struct {
	models.User
	IsFollowing bool `json:"is_following"`
}

// GetUserProfile returns a user's public profile
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	target, ok := loadTargetUser(c)
	if !ok {
		return
	}

	profile := UserProfile{User: *target}

	if viewerID := util.ViewerIDFromContext(c); viewerID != "" && viewerID != target.ID {
		var count int64
		err := database.DB.Model(&models.Follow{}).
			Where("follower_id = ? AND followee_id = ?", viewerID, target.ID).
			Count(&count).Error
		if err != nil {
			util.RespondUpstream(c, "data store")
			return
		}
		profile.IsFollowing = count > 0
	}

	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// UpdateProfileRequest is the payload for editing one's own profile
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

// UpdateProfile edits the current user's profile
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid profile payload: "+err.Error())
		return
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			util.RespondValidationError(c, "display_name", "display name must not be empty")
			return
		}
		user.DisplayName = name
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := database.DB.Save(user).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUserThreads lists a user's threads, newest first, with engagement
// annotation
// GET /api/v1/users/:id/threads
func (h *Handlers) GetUserThreads(c *gin.Context) {
	target, ok := loadTargetUser(c)
	if !ok {
		return
	}
	viewerID := util.ViewerIDFromContext(c)

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		100,
	)

	var threads []models.Thread
	err := database.DB.Preload("User").
		Where("user_id = ?", target.ID).
		Order("created_at DESC").
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

// SearchUsers searches users by username or display name
// GET /api/v1/search/users?q=alice
func (h *Handlers) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		util.RespondBadRequest(c, "search query is required")
		return
	}

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		50,
	)

	pattern := "%" + strings.ToLower(query) + "%"
	var users []models.User
	err := database.DB.
		Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern).
		Order("follower_count DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"query":  query,
		"limit":  limit,
		"offset": offset,
	})
}

// SearchThreads searches thread bodies
// GET /api/v1/search/threads?q=gophers
func (h *Handlers) SearchThreads(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		util.RespondBadRequest(c, "search query is required")
		return
	}
	viewerID := util.ViewerIDFromContext(c)

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		50,
	)

	pattern := "%" + strings.ToLower(query) + "%"
	var threads []models.Thread
	err := database.DB.Preload("User").
		Where("LOWER(content) LIKE ?", pattern).
		Order("created_at DESC").
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
		"query":   query,
		"limit":   limit,
		"offset":  offset,
	})
}
