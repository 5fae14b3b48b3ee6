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

// loadTargetUser resolves the :id route param to a user, handling the 404.
func loadTargetUser(c *gin.Context) (*models.User, bool) {
	var target models.User
	err := database.DB.First(&target, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "user") {
		return nil, false
	}
	return &target, true
}

// ToggleFollow follows or unfollows a user
// POST /api/v1/users/:id/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	target, ok := loadTargetUser(c)
	if !ok {
		return
	}

	if target.ID == userID {
		util.RespondValidationError(c, "id", "you cannot follow yourself")
		return
	}

	var existing models.Follow
	err := database.DB.Where("follower_id = ? AND followee_id = ?", userID, target.ID).First(&existing).Error
	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			util.RespondUpstream(c, "data store")
			return
		}
		adjustFollowCounters(userID, target.ID, -1)
		recordToggle(c, "follow", false)
		c.JSON(http.StatusOK, gin.H{"following": false})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondUpstream(c, "data store")
		return
	}

	follow := models.Follow{FollowerID: userID, FolloweeID: target.ID}
	if err := database.DB.Create(&follow).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	adjustFollowCounters(userID, target.ID, 1)

	if err := h.notifier.Emit(c.Request.Context(), target.ID, userID, models.NotificationFollow, nil); err != nil {
		logger.WarnWithFields("failed to emit follow notification for user "+target.ID, err)
	}

	recordToggle(c, "follow", true)
	c.JSON(http.StatusOK, gin.H{"following": true})
}

// adjustFollowCounters keeps the cached follower/following counters in step
// with the follow edge. Counter drift is tolerated; the edge table is the
// source of truth.
func adjustFollowCounters(followerID, followeeID string, delta int) {
	var followingExpr, followerExpr interface{}
	if delta > 0 {
		followingExpr = gorm.Expr("following_count + 1")
		followerExpr = gorm.Expr("follower_count + 1")
	} else {
		followingExpr = gorm.Expr("CASE WHEN following_count > 0 THEN following_count - 1 ELSE 0 END")
		followerExpr = gorm.Expr("CASE WHEN follower_count > 0 THEN follower_count - 1 ELSE 0 END")
	}

	err := database.DB.Model(&models.User{}).Where("id = ?", followerID).
		UpdateColumn("following_count", followingExpr).Error
	if err != nil {
		logger.WarnWithFields("failed to adjust following count for user "+followerID, err)
	}
	err = database.DB.Model(&models.User{}).Where("id = ?", followeeID).
		UpdateColumn("follower_count", followerExpr).Error
	if err != nil {
		logger.WarnWithFields("failed to adjust follower count for user "+followeeID, err)
	}
}

// ToggleMute mutes or unmutes a user. Muting is silent: no notification, and
// the muted user keeps following as before.
// POST /api/v1/users/:id/mute
func (h *Handlers) ToggleMute(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	target, ok := loadTargetUser(c)
	if !ok {
		return
	}

	if target.ID == userID {
		util.RespondValidationError(c, "id", "you cannot mute yourself")
		return
	}

	var existing models.MutedUser
	err := database.DB.Where("user_id = ? AND muted_user_id = ?", userID, target.ID).First(&existing).Error
	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			util.RespondUpstream(c, "data store")
			return
		}
		recordToggle(c, "mute", false)
		c.JSON(http.StatusOK, gin.H{"muted": false})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondUpstream(c, "data store")
		return
	}

	mute := models.MutedUser{UserID: userID, MutedUserID: target.ID}
	if err := database.DB.Create(&mute).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	recordToggle(c, "mute", true)
	c.JSON(http.StatusOK, gin.H{"muted": true})
}

// ToggleBlock blocks or unblocks a user. Blocking severs the follow edges in
// both directions.
// POST /api/v1/users/:id/block
func (h *Handlers) ToggleBlock(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	target, ok := loadTargetUser(c)
	if !ok {
		return
	}

	if target.ID == userID {
		util.RespondValidationError(c, "id", "you cannot block yourself")
		return
	}

	var existing models.BlockedUser
	err := database.DB.Where("user_id = ? AND blocked_user_id = ?", userID, target.ID).First(&existing).Error
	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			util.RespondUpstream(c, "data store")
			return
		}
		recordToggle(c, "block", false)
		c.JSON(http.StatusOK, gin.H{"blocked": false})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondUpstream(c, "data store")
		return
	}

	block := models.BlockedUser{UserID: userID, BlockedUserID: target.ID}
	if err := database.DB.Create(&block).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	// Sever any follow relationship between the pair
	result := database.DB.Where(
		"(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
		userID, target.ID, target.ID, userID,
	).Delete(&models.Follow{})
	if result.Error != nil {
		logger.WarnWithFields("failed to sever follows after block of user "+target.ID, result.Error)
	}

	recordToggle(c, "block", true)
	c.JSON(http.StatusOK, gin.H{"blocked": true})
}

// GetFollowers lists users following the given user
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	listFollowEdgeUsers(c, "follows.follower_id", "follows.followee_id")
}

// GetFollowing lists users the given user follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	listFollowEdgeUsers(c, "follows.followee_id", "follows.follower_id")
}

func listFollowEdgeUsers(c *gin.Context, selectCol, whereCol string) {
	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		100,
	)

	var users []models.User
	err := database.DB.
		Joins("JOIN follows ON "+selectCol+" = users.id").
		Where(whereCol+" = ?", c.Param("id")).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}
