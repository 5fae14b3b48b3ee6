package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/weaveapp/weave/backend/internal/errors"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
)

// RequireAuth validates the bearer token and stores the resolved user in the
// request context. Requests without a valid session are rejected.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.userFromRequest(c)
		if err != nil {
			util.RespondWithAPIError(c, apierrors.Unauthenticated("you must be logged in"))
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuth resolves the viewer identity when a token is present but lets
// anonymous requests through. Viewer-relative flags are false for anonymous
// reads.
func (s *Service) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := s.userFromRequest(c); err == nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}
		c.Next()
	}
}

// RequireAdmin must be chained after RequireAuth.
func (s *Service) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.Abort()
			return
		}
		if !user.IsAdmin {
			util.RespondWithAPIError(c, apierrors.Forbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Service) userFromRequest(c *gin.Context) (*models.User, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, ErrInvalidCredentials
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return nil, ErrInvalidCredentials
	}
	return s.ValidateToken(token)
}
