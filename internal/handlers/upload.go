package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/storage"
	"github.com/weaveapp/weave/backend/internal/util"
)

// MaxUploadBytes bounds a single media upload.
const MaxUploadBytes = 50 << 20 // 50 MB

// UploadMedia accepts a multipart image or video and stores it in S3
// POST /api/v1/upload
func (h *Handlers) UploadMedia(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if h.uploader == nil {
		util.RespondUpstream(c, "media storage")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "a 'file' form field is required")
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		util.RespondValidationError(c, "file", "file exceeds the 50MB upload limit")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if storage.ContentTypeForExtension(ext) == "application/octet-stream" {
		util.RespondValidationError(c, "file", "unsupported file type: "+ext)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondBadRequest(c, "could not read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		util.RespondBadRequest(c, "could not read uploaded file")
		return
	}
	if len(data) > MaxUploadBytes {
		util.RespondValidationError(c, "file", "file exceeds the 50MB upload limit")
		return
	}

	result, err := h.uploader.UploadMedia(c.Request.Context(), data, userID, fileHeader.Filename)
	if err != nil {
		logger.ErrorWithFields("media upload failed for user "+userID, err)
		util.RespondUpstream(c, "media storage")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":      result.URL,
		"key":      result.Key,
		"size":     result.Size,
		"is_video": storage.IsVideoExtension(ext),
	})
}
