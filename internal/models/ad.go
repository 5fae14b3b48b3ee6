package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdPlacementPosition is where an ad can be rendered.
type AdPlacementPosition string

const (
	AdPlacementFeed    AdPlacementPosition = "feed"
	AdPlacementSidebar AdPlacementPosition = "sidebar"
	AdPlacementProfile AdPlacementPosition = "profile"
	AdPlacementVideo   AdPlacementPosition = "video"
)

// AdPlacement is an admin-managed ad unit served into feed ad slots.
type AdPlacement struct {
	ID        string              `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string              `gorm:"not null" json:"name"`
	Placement AdPlacementPosition `gorm:"type:varchar(16);not null;index" json:"placement"`
	AdCode    string              `gorm:"type:text;not null" json:"ad_code"`
	IsActive  bool                `gorm:"default:true;index" json:"is_active"`

	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *AdPlacement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
