package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engagement edges. Each kind is unique on its (subject, object) pair —
// toggled, never duplicated. Uniqueness is enforced by indexes created in
// database.Migrate.

// ThreadLike records that a user liked a thread.
type ThreadLike struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"not null;index" json:"user_id"`
	ThreadID string `gorm:"not null;index" json:"thread_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (l *ThreadLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// ReplyLike records that a user liked a reply.
type ReplyLike struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	ReplyID string `gorm:"not null;index" json:"reply_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (l *ReplyLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// Repost records that a user reposted a thread to their own feed.
type Repost struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"not null;index" json:"user_id"`
	ThreadID string `gorm:"not null;index" json:"thread_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *Repost) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Bookmark records that a user saved a thread for later.
type Bookmark struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"not null;index" json:"user_id"`
	ThreadID string `gorm:"not null;index" json:"thread_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// Follow records that FollowerID follows FolloweeID.
type Follow struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID string `gorm:"not null;index" json:"follower_id"`
	FolloweeID string `gorm:"not null;index" json:"followee_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// MutedUser hides MutedUserID's threads from UserID's feeds without
// notifying anyone.
type MutedUser struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"not null;index" json:"user_id"`
	MutedUserID string `gorm:"not null;index" json:"muted_user_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *MutedUser) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// BlockedUser prevents all interaction between the pair.
type BlockedUser struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string `gorm:"not null;index" json:"user_id"`
	BlockedUserID string `gorm:"not null;index" json:"blocked_user_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (b *BlockedUser) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
