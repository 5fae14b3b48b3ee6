// Package feed composes home-timeline pages: it selects threads for a feed
// mode, annotates them with engagement data, and injects suggestion blocks
// and ad slots at fixed positions.
//
// Mentions matching is a case-insensitive substring test on the body, which
// is a known false-positive risk: "@alice" also matches inside "@alice2".
// This mirrors the product's matching semantics and is intentionally not
// anchored on word boundaries.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/weaveapp/weave/backend/internal/cache"
	"github.com/weaveapp/weave/backend/internal/engagement"
	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/gorm"
)

// Mode selects the source filter for a composed page.
type Mode string

const (
	ModeLatest    Mode = "latest"
	ModeTrending  Mode = "trending"
	ModeFollowing Mode = "following"
	ModeMentions  Mode = "mentions"
	ModeVideo     Mode = "video"
)

// Product tuning constants. These are knobs, not invariants; nothing else in
// the composer depends on their exact values.
const (
	// VideoSlotInterval puts a video in every 5th slot of the latest feed
	// when one is available.
	VideoSlotInterval = 5

	// AdSlotInterval injects an ad slot after every 7th content item.
	AdSlotInterval = 7

	// Trending window and score weights: likes + 2*replies + 3*reposts over
	// the trailing 3 days, truncated to the top 20.
	TrendingWindowDays   = 3
	TrendingLimit        = 20
	TrendingLikeWeight   = 1
	TrendingReplyWeight  = 2
	TrendingRepostWeight = 3

	// Trending hashtags scan the trailing 7 days and keep the top 10.
	HashtagWindowDays = 7
	HashtagLimit      = 10

	// Suggestion blocks carry between 3 and 5 users.
	SuggestionMaxUsers = 5
	SuggestionMinUsers = 3

	// DefaultPageSize bounds a composed page when the caller does not ask
	// for a specific size.
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// SuggestionPositions are the 1-indexed content positions after which a
// suggested-users block is injected.
var SuggestionPositions = []int{4, 14, 29, 49}

// EntryType discriminates the page entry union.
type EntryType string

const (
	EntryThread      EntryType = "thread"
	EntryAd          EntryType = "ad"
	EntrySuggestions EntryType = "suggestions"
)

// Entry is one slot of a composed page: a thread, an ad slot, or a
// suggested-users block.
type Entry struct {
	Type        EntryType                   `json:"type"`
	Thread      *engagement.AnnotatedThread `json:"thread,omitempty"`
	Ad          *AdSlot                     `json:"ad,omitempty"`
	Suggestions []SuggestedUser             `json:"suggestions,omitempty"`
}

// AdSlot is an injected ad position. Ad is nil when no active placement is
// scheduled, in which case the client renders a house placeholder.
type AdSlot struct {
	Placement models.AdPlacementPosition `json:"placement"`
	Ad        *models.AdPlacement        `json:"ad,omitempty"`
}

// SuggestedUser is a user the viewer does not follow yet, ranked by how much
// they post.
type SuggestedUser struct {
	models.User
	ThreadCount int64 `json:"thread_count"`
}

// Page is one composed feed response. Built per request and discarded after
// render; never cached server side.
type Page struct {
	Entries []Entry  `json:"entries"`
	Meta    PageMeta `json:"meta"`
}

// PageMeta describes the window that produced the page.
type PageMeta struct {
	Mode    Mode `json:"mode"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"` // content items, excluding injected entries
	HasMore bool `json:"has_more"`
}

// Composer builds feed pages from the thread store.
type Composer struct {
	db         *gorm.DB
	aggregator *engagement.Aggregator
	cache      *cache.RedisClient // optional, may be nil
}

// NewComposer creates a feed composer. The cache client is optional; without
// it the trending surfaces are computed on every request.
func NewComposer(db *gorm.DB, aggregator *engagement.Aggregator, redis *cache.RedisClient) *Composer {
	return &Composer{
		db:         db,
		aggregator: aggregator,
		cache:      redis,
	}
}

// Compose returns one feed page for the given mode and window. An empty page
// is a valid outcome (a new user with no follows); a failed store round trip
// fails the whole request with no partial page.
func (c *Composer) Compose(ctx context.Context, mode Mode, viewerID string, pageSize, offset int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var (
		threads []models.Thread
		hasMore bool
		err     error
	)

	switch mode {
	case ModeLatest:
		threads, hasMore, err = c.latestThreads(ctx, pageSize, offset)
	case ModeTrending:
		threads, hasMore, err = c.trendingThreads(ctx, pageSize, offset)
	case ModeFollowing:
		threads, hasMore, err = c.followingThreads(ctx, viewerID, pageSize, offset)
	case ModeMentions:
		threads, hasMore, err = c.mentionThreads(ctx, viewerID, pageSize, offset)
	case ModeVideo:
		threads, hasMore, err = c.videoThreads(ctx, pageSize, offset)
	default:
		return nil, fmt.Errorf("unknown feed mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("feed source fetch failed: %w", err)
	}

	annotated, err := c.aggregator.Annotate(ctx, threads, viewerID)
	if err != nil {
		return nil, fmt.Errorf("feed annotation failed: %w", err)
	}

	entries, err := c.inject(ctx, annotated, viewerID, offset)
	if err != nil {
		return nil, fmt.Errorf("feed injection failed: %w", err)
	}

	return &Page{
		Entries: entries,
		Meta: PageMeta{
			Mode:    mode,
			Limit:   pageSize,
			Offset:  offset,
			Count:   len(annotated),
			HasMore: hasMore,
		},
	}, nil
}

// latestThreads builds the interleaved latest stream: every 5th slot prefers
// a video when one is available, otherwise the next text/image thread, and
// the slot is skipped when neither remains. Pagination applies to the final
// interleaved sequence, so the whole prefix is rebuilt and sliced.
func (c *Composer) latestThreads(ctx context.Context, pageSize, offset int) ([]models.Thread, bool, error) {
	// One extra slot decides has_more.
	want := offset + pageSize + 1

	var regular []models.Thread
	err := c.db.WithContext(ctx).
		Preload("User").
		Where("media_type <> ?", models.MediaVideo).
		Order("created_at DESC").
		Limit(want).
		Find(&regular).Error
	if err != nil {
		return nil, false, err
	}

	// Videos fill their preferred every-5th slots first, then drain into
	// regular slots once the text/image stream runs out, so the video
	// stream needs the full window too.
	var videos []models.Thread
	err = c.db.WithContext(ctx).
		Preload("User").
		Where("media_type = ?", models.MediaVideo).
		Order("created_at DESC").
		Limit(want).
		Find(&videos).Error
	if err != nil {
		return nil, false, err
	}

	merged := interleaveVideos(regular, videos, want)

	if offset >= len(merged) {
		return nil, false, nil
	}
	end := offset + pageSize
	hasMore := end < len(merged)
	if end > len(merged) {
		end = len(merged)
	}
	return merged[offset:end], hasMore, nil
}

// interleaveVideos merges the two streams slot by slot up to limit.
func interleaveVideos(regular, videos []models.Thread, limit int) []models.Thread {
	merged := make([]models.Thread, 0, limit)
	var ri, vi int
	for slot := 1; slot <= limit; slot++ {
		preferVideo := slot%VideoSlotInterval == 0
		switch {
		case preferVideo && vi < len(videos):
			merged = append(merged, videos[vi])
			vi++
		case ri < len(regular):
			merged = append(merged, regular[ri])
			ri++
		case vi < len(videos):
			merged = append(merged, videos[vi])
			vi++
		default:
			return merged
		}
	}
	return merged
}

// trendingThreads ranks the trailing window by weighted engagement score and
// keeps the top TrendingLimit. Offsets beyond the truncated set yield an
// empty page.
func (c *Composer) trendingThreads(ctx context.Context, pageSize, offset int) ([]models.Thread, bool, error) {
	windowStart := time.Now().AddDate(0, 0, -TrendingWindowDays)

	var candidates []models.Thread
	err := c.db.WithContext(ctx).
		Preload("User").
		Where("created_at > ?", windowStart).
		Order("created_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, false, err
	}

	// Scores come from the same edge counts the aggregator computes; the
	// viewer does not influence trending rank.
	scored, err := c.aggregator.Annotate(ctx, candidates, "")
	if err != nil {
		return nil, false, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := TrendingScore(&scored[i]), TrendingScore(&scored[j])
		if si != sj {
			return si > sj
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})

	if len(scored) > TrendingLimit {
		scored = scored[:TrendingLimit]
	}

	if offset >= len(scored) {
		return nil, false, nil
	}
	end := offset + pageSize
	hasMore := end < len(scored)
	if end > len(scored) {
		end = len(scored)
	}

	page := make([]models.Thread, 0, end-offset)
	for _, a := range scored[offset:end] {
		page = append(page, a.Thread)
	}
	return page, hasMore, nil
}

// TrendingScore is the weighted engagement score used to rank the trending
// feed.
func TrendingScore(t *engagement.AnnotatedThread) int64 {
	return TrendingLikeWeight*t.LikeCount +
		TrendingReplyWeight*t.ReplyCount +
		TrendingRepostWeight*t.RepostCount
}

// followingThreads returns threads authored by users the viewer follows.
// Anonymous viewers and viewers with no follows get an empty page.
func (c *Composer) followingThreads(ctx context.Context, viewerID string, pageSize, offset int) ([]models.Thread, bool, error) {
	if viewerID == "" {
		return nil, false, nil
	}

	var followeeIDs []string
	err := c.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", viewerID).
		Pluck("followee_id", &followeeIDs).Error
	if err != nil {
		return nil, false, err
	}
	if len(followeeIDs) == 0 {
		return nil, false, nil
	}

	return c.pageThreads(ctx, pageSize, offset, "user_id IN ?", followeeIDs)
}

// mentionThreads returns threads whose body contains @<viewer username> as a
// case-insensitive substring. Anonymous viewers get an empty page.
func (c *Composer) mentionThreads(ctx context.Context, viewerID string, pageSize, offset int) ([]models.Thread, bool, error) {
	if viewerID == "" {
		return nil, false, nil
	}

	var viewer models.User
	if err := c.db.WithContext(ctx).First(&viewer, "id = ?", viewerID).Error; err != nil {
		return nil, false, err
	}

	needle := "%@" + viewer.Username + "%"
	return c.pageThreads(ctx, pageSize, offset, "LOWER(content) LIKE LOWER(?)", needle)
}

// videoThreads returns only video threads, newest first.
func (c *Composer) videoThreads(ctx context.Context, pageSize, offset int) ([]models.Thread, bool, error) {
	return c.pageThreads(ctx, pageSize, offset, "media_type = ?", models.MediaVideo)
}

// pageThreads runs one filtered, created-at-ordered page query with a
// one-extra-row has_more probe.
func (c *Composer) pageThreads(ctx context.Context, pageSize, offset int, query string, args ...interface{}) ([]models.Thread, bool, error) {
	var threads []models.Thread
	err := c.db.WithContext(ctx).
		Preload("User").
		Where(query, args...).
		Order("created_at DESC").
		Limit(pageSize + 1).
		Offset(offset).
		Find(&threads).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(threads) > pageSize
	if hasMore {
		threads = threads[:pageSize]
	}
	return threads, hasMore, nil
}

// inject builds the final entry sequence: suggestion blocks immediately after
// the configured 1-indexed content positions and an ad slot after every
// position that is a positive multiple of AdSlotInterval. Positions count
// content items in the final composed sequence; the page offset shifts them
// so position 14 still gets its block when it lands on a later page.
func (c *Composer) inject(ctx context.Context, items []engagement.AnnotatedThread, viewerID string, offset int) ([]Entry, error) {
	suggestPositions := make(map[int]bool, len(SuggestionPositions))
	needSuggestions := false
	for _, p := range SuggestionPositions {
		suggestPositions[p] = true
		if p > offset && p <= offset+len(items) {
			needSuggestions = true
		}
	}

	var suggestions []SuggestedUser
	if needSuggestions {
		var err error
		suggestions, err = c.SuggestedUsers(ctx, viewerID, SuggestionMaxUsers)
		if err != nil {
			return nil, err
		}
	}

	needAds := len(items) > 0 && (offset+len(items))/AdSlotInterval > offset/AdSlotInterval
	var ads []models.AdPlacement
	if needAds {
		var err error
		ads, err = c.ActiveAds(ctx, models.AdPlacementFeed)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(items)+len(items)/AdSlotInterval+1)
	adIndex := 0
	for i := range items {
		entries = append(entries, Entry{Type: EntryThread, Thread: &items[i]})

		position := offset + i + 1 // 1-indexed position in the composed sequence
		if suggestPositions[position] && len(suggestions) > 0 {
			entries = append(entries, Entry{Type: EntrySuggestions, Suggestions: suggestions})
		}
		if position%AdSlotInterval == 0 {
			slot := &AdSlot{Placement: models.AdPlacementFeed}
			if len(ads) > 0 {
				slot.Ad = &ads[adIndex%len(ads)]
				adIndex++
			}
			entries = append(entries, Entry{Type: EntryAd, Ad: slot})
		}
	}

	return entries, nil
}

// SuggestedUsers returns up to limit users the viewer does not already
// follow, ranked by thread count descending. The viewer themself is
// excluded.
func (c *Composer) SuggestedUsers(ctx context.Context, viewerID string, limit int) ([]SuggestedUser, error) {
	if limit <= 0 || limit > SuggestionMaxUsers {
		limit = SuggestionMaxUsers
	}

	db := c.db.WithContext(ctx).Model(&models.User{})

	if viewerID != "" {
		db = db.Where("id <> ?", viewerID).
			Where("id NOT IN (?)",
				c.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID))
	}

	var users []models.User
	if err := db.Order("thread_count DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}

	suggested := make([]SuggestedUser, len(users))
	for i, u := range users {
		suggested[i] = SuggestedUser{User: u, ThreadCount: int64(u.ThreadCount)}
	}
	return suggested, nil
}

// ActiveAds returns the active ad placements for a position, filtered by
// schedule window.
func (c *Composer) ActiveAds(ctx context.Context, placement models.AdPlacementPosition) ([]models.AdPlacement, error) {
	now := time.Now()
	var ads []models.AdPlacement
	err := c.db.WithContext(ctx).
		Where("placement = ? AND is_active = ?", placement, true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at > ?", now).
		Order("created_at DESC").
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return ads, nil
}
