package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/feed"
	"github.com/weaveapp/weave/backend/internal/metrics"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
)

// GetFeed returns one composed feed page
// GET /api/v1/feed?mode=latest&limit=50&offset=0
func (h *Handlers) GetFeed(c *gin.Context) {
	mode := feed.Mode(c.DefaultQuery("mode", string(feed.ModeLatest)))
	switch mode {
	case feed.ModeLatest, feed.ModeTrending, feed.ModeFollowing, feed.ModeMentions, feed.ModeVideo:
	default:
		util.RespondBadRequest(c, "unknown feed mode: "+string(mode))
		return
	}

	viewerID := util.ViewerIDFromContext(c)
	if viewerID == "" && (mode == feed.ModeFollowing || mode == feed.ModeMentions) {
		util.RespondUnauthenticated(c, "this feed requires a logged-in viewer")
		return
	}

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), feed.DefaultPageSize),
		util.ParseInt(c.Query("offset"), 0),
		feed.MaxPageSize,
	)

	start := time.Now()
	page, err := h.composer.Compose(c.Request.Context(), mode, viewerID, limit, offset)
	if err != nil {
		util.RespondUpstream(c, "feed store")
		return
	}
	metrics.RecordFeedComposition(string(mode), time.Since(start))

	c.JSON(http.StatusOK, page)
}

// GetTrendingThreads returns the trending window as a plain thread list
// GET /api/v1/trending/threads
func (h *Handlers) GetTrendingThreads(c *gin.Context) {
	viewerID := util.ViewerIDFromContext(c)

	page, err := h.composer.Compose(c.Request.Context(), feed.ModeTrending, viewerID, feed.TrendingLimit, 0)
	if err != nil {
		util.RespondUpstream(c, "feed store")
		return
	}

	threads := make([]interface{}, 0, len(page.Entries))
	for _, entry := range page.Entries {
		if entry.Type == feed.EntryThread {
			threads = append(threads, entry.Thread)
		}
	}

	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// GetTrendingHashtags returns the top hashtags from the trailing window
// GET /api/v1/trending/hashtags
func (h *Handlers) GetTrendingHashtags(c *gin.Context) {
	hashtags, err := h.composer.TrendingHashtags(c.Request.Context())
	if err != nil {
		util.RespondUpstream(c, "feed store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hashtags": hashtags})
}

// GetTrendingUsers returns the most-followed users
// GET /api/v1/trending/users
func (h *Handlers) GetTrendingUsers(c *gin.Context) {
	limit, _ := util.ClampPage(util.ParseInt(c.Query("limit"), 10), 0, 50)

	users, err := h.composer.TrendingUsers(c.Request.Context(), limit)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetTrendingVideos returns the video feed's first page
// GET /api/v1/trending/videos
func (h *Handlers) GetTrendingVideos(c *gin.Context) {
	viewerID := util.ViewerIDFromContext(c)
	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 20),
		util.ParseInt(c.Query("offset"), 0),
		feed.MaxPageSize,
	)

	page, err := h.composer.Compose(c.Request.Context(), feed.ModeVideo, viewerID, limit, offset)
	if err != nil {
		util.RespondUpstream(c, "feed store")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetSuggestedUsers returns users the viewer does not follow yet, most
// prolific first
// GET /api/v1/users/suggested
func (h *Handlers) GetSuggestedUsers(c *gin.Context) {
	viewerID := util.ViewerIDFromContext(c)
	limit, _ := util.ClampPage(util.ParseInt(c.Query("limit"), feed.SuggestionMaxUsers), 0, 20)

	users, err := h.composer.SuggestedUsers(c.Request.Context(), viewerID, limit)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetActiveAds lists active ad placements for a surface
// GET /api/v1/ads/active?placement=sidebar
func (h *Handlers) GetActiveAds(c *gin.Context) {
	placement := models.AdPlacementPosition(c.DefaultQuery("placement", string(models.AdPlacementFeed)))
	switch placement {
	case models.AdPlacementFeed, models.AdPlacementSidebar, models.AdPlacementProfile, models.AdPlacementVideo:
	default:
		util.RespondBadRequest(c, "unknown placement: "+string(placement))
		return
	}

	ads, err := h.composer.ActiveAds(c.Request.Context(), placement)
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": ads})
}
