package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/auth"
	apierrors "github.com/weaveapp/weave/backend/internal/errors"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/util"
)

// Register creates a new account with email/password
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid registration payload: "+err.Error())
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.RespondWithAPIError(c, apierrors.Conflict("an account with that email already exists"))
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondWithAPIError(c, apierrors.Conflict("that username is already taken"))
		default:
			logger.ErrorWithFields("registration failed", err)
			util.RespondUpstream(c, "data store")
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email/password and returns a JWT
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid login payload: "+err.Error())
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserNotFound) {
			util.RespondUnauthenticated(c, "invalid email or password")
			return
		}
		logger.ErrorWithFields("login failed", err)
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's own profile
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
