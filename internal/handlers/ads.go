package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
)

// AdPlacementRequest is the admin payload for creating or updating an ad unit
type AdPlacementRequest struct {
	Name      string     `json:"name"`
	Placement string     `json:"placement"`
	AdCode    string     `json:"ad_code"`
	IsActive  *bool      `json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
}

func validAdPlacement(p string) bool {
	switch models.AdPlacementPosition(p) {
	case models.AdPlacementFeed, models.AdPlacementSidebar, models.AdPlacementProfile, models.AdPlacementVideo:
		return true
	}
	return false
}

// ListAds lists all ad placements for the admin console
// GET /api/v1/admin/ads
func (h *Handlers) ListAds(c *gin.Context) {
	var ads []models.AdPlacement
	if err := database.DB.Order("created_at DESC").Find(&ads).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": ads})
}

// CreateAd creates a new ad placement
// POST /api/v1/admin/ads
func (h *Handlers) CreateAd(c *gin.Context) {
	var req AdPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid ad payload: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		util.RespondValidationError(c, "name", "name must not be empty")
		return
	}
	if strings.TrimSpace(req.AdCode) == "" {
		util.RespondValidationError(c, "ad_code", "ad_code must not be empty")
		return
	}
	if !validAdPlacement(req.Placement) {
		util.RespondValidationError(c, "placement", "placement must be one of feed, sidebar, profile, video")
		return
	}

	ad := models.AdPlacement{
		Name:      req.Name,
		Placement: models.AdPlacementPosition(req.Placement),
		AdCode:    req.AdCode,
		IsActive:  true,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	}
	if req.IsActive != nil {
		ad.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&ad).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ad": ad})
}

// UpdateAd updates an existing ad placement
// PUT /api/v1/admin/ads/:id
func (h *Handlers) UpdateAd(c *gin.Context) {
	var ad models.AdPlacement
	err := database.DB.First(&ad, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "ad placement") {
		return
	}

	var req AdPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid ad payload: "+err.Error())
		return
	}

	if req.Name != "" {
		ad.Name = req.Name
	}
	if req.AdCode != "" {
		ad.AdCode = req.AdCode
	}
	if req.Placement != "" {
		if !validAdPlacement(req.Placement) {
			util.RespondValidationError(c, "placement", "placement must be one of feed, sidebar, profile, video")
			return
		}
		ad.Placement = models.AdPlacementPosition(req.Placement)
	}
	if req.IsActive != nil {
		ad.IsActive = *req.IsActive
	}
	if req.StartsAt != nil {
		ad.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		ad.EndsAt = req.EndsAt
	}

	if err := database.DB.Save(&ad).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ad": ad})
}

// DeleteAd removes an ad placement
// DELETE /api/v1/admin/ads/:id
func (h *Handlers) DeleteAd(c *gin.Context) {
	var ad models.AdPlacement
	err := database.DB.First(&ad, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "ad placement") {
		return
	}

	if err := database.DB.Delete(&ad).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
