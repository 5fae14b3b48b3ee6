package util

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/weaveapp/weave/backend/internal/errors"
	"github.com/weaveapp/weave/backend/internal/models"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// Returns the user and true if found, or nil and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		RespondWithAPIError(c, apierrors.Unauthenticated("you must be logged in"))
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		RespondWithAPIError(c, apierrors.InternalError("invalid user data in context"))
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// Returns the user ID and true if found, or empty string and false if not
// authenticated. If the user is not authenticated, it automatically responds
// with 401.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		RespondWithAPIError(c, apierrors.Unauthenticated("you must be logged in"))
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok {
		RespondWithAPIError(c, apierrors.InternalError("invalid user ID in context"))
		return "", false
	}
	return userIDStr, true
}

// ViewerIDFromContext returns the viewer id for optionally-authenticated
// reads, or "" for anonymous requests. Never writes a response.
func ViewerIDFromContext(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}
