package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationReply   NotificationType = "reply"
	NotificationRepost  NotificationType = "repost"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Notification is delivered to UserID when ActorID interacts with their
// content or mentions them.
type Notification struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	ActorID string `gorm:"not null;index" json:"actor_id"`
	Actor   User   `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Type     NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	ThreadID *string          `gorm:"type:uuid" json:"thread_id,omitempty"`
	IsRead   bool             `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}
