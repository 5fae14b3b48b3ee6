// Package notify creates notification rows for engagement events and
// @mentions.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/weaveapp/weave/backend/internal/feed"
	"github.com/weaveapp/weave/backend/internal/metrics"
	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/gorm"
)

// Service writes notifications. Callers treat failures as best-effort: the
// triggering write has already committed, so a failed notification is logged
// at the call site rather than failing the request.
type Service struct {
	db *gorm.DB
}

// NewService creates a notification service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Emit creates one engagement notification. Self-notification is silently
// skipped.
func (s *Service) Emit(ctx context.Context, recipientID, actorID string, typ models.NotificationType, threadID *string) error {
	if recipientID == actorID {
		return nil
	}

	n := models.Notification{
		UserID:   recipientID,
		ActorID:  actorID,
		Type:     typ,
		ThreadID: threadID,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("failed to create %s notification: %w", typ, err)
	}
	metrics.RecordNotification(string(typ))
	return nil
}

// EmitMentions scans a freshly created thread or reply body for @username
// tokens, resolves each distinct token to a user by exact case-insensitive
// username lookup, and creates one mention notification per resolved user.
// Unresolvable tokens are skipped silently — they are not an error. The
// author never gets a mention notification for their own post.
func (s *Service) EmitMentions(ctx context.Context, actorID, threadID, body string) error {
	tokens := feed.ExtractTokens(body)
	if len(tokens.Mentions) == 0 {
		return nil
	}

	for _, username := range tokens.Mentions {
		var user models.User
		err := s.db.WithContext(ctx).
			Where("LOWER(username) = LOWER(?)", username).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // unresolved mention, skip
			}
			return fmt.Errorf("mention lookup failed: %w", err)
		}

		if err := s.Emit(ctx, user.ID, actorID, models.NotificationMention, &threadID); err != nil {
			return err
		}
	}
	return nil
}
