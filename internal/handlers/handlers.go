package handlers

import (
	"github.com/weaveapp/weave/backend/internal/auth"
	"github.com/weaveapp/weave/backend/internal/engagement"
	"github.com/weaveapp/weave/backend/internal/feed"
	"github.com/weaveapp/weave/backend/internal/notify"
	"github.com/weaveapp/weave/backend/internal/storage"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	composer   *feed.Composer
	aggregator *engagement.Aggregator
	notifier   *notify.Service
	auth       *auth.Service
	uploader   storage.MediaUploader
}

// NewHandlers creates a new handlers instance
func NewHandlers(composer *feed.Composer, aggregator *engagement.Aggregator, notifier *notify.Service, authService *auth.Service) *Handlers {
	return &Handlers{
		composer:   composer,
		aggregator: aggregator,
		notifier:   notifier,
		auth:       authService,
	}
}

// SetUploader sets the media uploader used by the upload endpoint
func (h *Handlers) SetUploader(uploader storage.MediaUploader) {
	h.uploader = uploader
}
