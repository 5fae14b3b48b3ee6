package feed

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/weaveapp/weave/backend/internal/cache"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/models"
)

const (
	trendingHashtagsCacheKey = "trending:hashtags"
	trendingHashtagsCacheTTL = 60 * time.Second
)

// TrendingHashtag is one entry of the trending-hashtags view.
type TrendingHashtag struct {
	Hashtag string `json:"hashtag"`
	Count   int    `json:"count"`
}

// TrendingHashtags scans the trailing HashtagWindowDays of threads, counts
// lowercased #tokens, and returns the top HashtagLimit by count descending.
// Ties keep first-seen order, which is newest-thread-first. Results are
// served from redis for a short TTL when a cache client is configured.
func (c *Composer) TrendingHashtags(ctx context.Context) ([]TrendingHashtag, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, trendingHashtagsCacheKey); err == nil {
			var tags []TrendingHashtag
			if jsonErr := json.Unmarshal([]byte(cached), &tags); jsonErr == nil {
				return tags, nil
			}
		} else if !cache.IsNil(err) {
			// A cache failure is not a composer failure; recompute from the store.
			logger.WarnWithFields("trending hashtag cache read failed", err)
		}
	}

	windowStart := time.Now().AddDate(0, 0, -HashtagWindowDays)

	var bodies []string
	err := c.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("created_at > ?", windowStart).
		Order("created_at DESC").
		Pluck("content", &bodies).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, body := range bodies {
		for _, tag := range ExtractTokens(body).Hashtags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	tags := make([]TrendingHashtag, 0, len(order))
	for _, tag := range order {
		tags = append(tags, TrendingHashtag{Hashtag: tag, Count: counts[tag]})
	}

	// Stable sort keeps first-seen order on equal counts.
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Count > tags[j].Count
	})

	if len(tags) > HashtagLimit {
		tags = tags[:HashtagLimit]
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(tags); err == nil {
			if err := c.cache.SetEx(ctx, trendingHashtagsCacheKey, string(encoded), trendingHashtagsCacheTTL); err != nil {
				logger.WarnWithFields("trending hashtag cache write failed", err)
			}
		}
	}

	return tags, nil
}

// TrendingUsers returns the most-followed users.
func (c *Composer) TrendingUsers(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = SuggestionMaxUsers
	}
	var users []models.User
	err := c.db.WithContext(ctx).
		Order("follower_count DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
