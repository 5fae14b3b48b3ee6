package engagement

import (
	"context"
	"fmt"

	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/gorm"
)

// AnnotatedThread is a thread together with its engagement counts and the
// viewer-relative flags. Computed fresh per request, never persisted.
type AnnotatedThread struct {
	models.Thread

	LikeCount     int64 `json:"likes_count"`
	ReplyCount    int64 `json:"replies_count"`
	RepostCount   int64 `json:"reposts_count"`
	BookmarkCount int64 `json:"bookmarks_count"`

	IsLiked           bool `json:"is_liked"`
	IsReposted        bool `json:"is_reposted"`
	IsBookmarked      bool `json:"is_bookmarked"`
	IsFollowingAuthor bool `json:"is_following_author"`
}

// AnnotatedReply is a reply with its like count, nested-reply count, and the
// viewer's like flag.
type AnnotatedReply struct {
	models.ThreadReply

	LikeCount  int64 `json:"likes_count"`
	ReplyCount int64 `json:"replies_count"`
	IsLiked    bool  `json:"is_liked"`
}

// Aggregator derives counts and viewer-relative flags for batches of threads
// from the raw edge tables.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates an aggregator backed by db.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

type countRow struct {
	ObjectID string
	N        int64
}

// Annotate computes, for each thread in items, its like/reply/repost/bookmark
// counts and the viewer's liked/reposted/bookmarked/following-author flags.
// With an empty viewerID all flags are false. Counts are batched per edge
// kind rather than issued per item; the observable result is identical.
// Any failed store round trip fails the whole batch — callers never see a
// partially annotated page.
func (a *Aggregator) Annotate(ctx context.Context, items []models.Thread, viewerID string) ([]AnnotatedThread, error) {
	annotated := make([]AnnotatedThread, len(items))
	if len(items) == 0 {
		return annotated, nil
	}

	threadIDs := make([]string, len(items))
	authorSet := make(map[string]bool, len(items))
	for i, t := range items {
		threadIDs[i] = t.ID
		authorSet[t.UserID] = true
	}
	authorIDs := make([]string, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	db := a.db.WithContext(ctx)

	// The four count queries have no ordering dependency between them, so
	// they run concurrently, mirroring the fan-out used for feed sources.
	type countResult struct {
		kind   string
		counts map[string]int64
		err    error
	}

	countQueries := []struct {
		kind   string
		model  interface{}
		column string
	}{
		{"likes", &models.ThreadLike{}, "thread_id"},
		{"replies", &models.ThreadReply{}, "thread_id"},
		{"reposts", &models.Repost{}, "thread_id"},
		{"bookmarks", &models.Bookmark{}, "thread_id"},
	}

	resultsChan := make(chan countResult, len(countQueries))
	for _, q := range countQueries {
		go func(kind string, model interface{}, column string) {
			var rows []countRow
			err := db.Model(model).
				Select(fmt.Sprintf("%s AS object_id, COUNT(*) AS n", column)).
				Where(fmt.Sprintf("%s IN ?", column), threadIDs).
				Group(column).
				Scan(&rows).Error
			if err != nil {
				resultsChan <- countResult{kind: kind, err: err}
				return
			}
			counts := make(map[string]int64, len(rows))
			for _, r := range rows {
				counts[r.ObjectID] = r.N
			}
			resultsChan <- countResult{kind: kind, counts: counts}
		}(q.kind, q.model, q.column)
	}

	countsByKind := make(map[string]map[string]int64, len(countQueries))
	var firstErr error
	for range countQueries {
		result := <-resultsChan
		if result.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s count query failed: %w", result.kind, result.err)
		}
		countsByKind[result.kind] = result.counts
	}
	if firstErr != nil {
		return nil, firstErr
	}

	liked := map[string]bool{}
	reposted := map[string]bool{}
	bookmarked := map[string]bool{}
	following := map[string]bool{}

	if viewerID != "" {
		var err error
		if liked, err = a.viewerEdgeSet(db, &models.ThreadLike{}, "user_id", viewerID, "thread_id", threadIDs); err != nil {
			return nil, fmt.Errorf("like flag query failed: %w", err)
		}
		if reposted, err = a.viewerEdgeSet(db, &models.Repost{}, "user_id", viewerID, "thread_id", threadIDs); err != nil {
			return nil, fmt.Errorf("repost flag query failed: %w", err)
		}
		if bookmarked, err = a.viewerEdgeSet(db, &models.Bookmark{}, "user_id", viewerID, "thread_id", threadIDs); err != nil {
			return nil, fmt.Errorf("bookmark flag query failed: %w", err)
		}
		if following, err = a.viewerEdgeSet(db, &models.Follow{}, "follower_id", viewerID, "followee_id", authorIDs); err != nil {
			return nil, fmt.Errorf("follow flag query failed: %w", err)
		}
	}

	for i, t := range items {
		annotated[i] = AnnotatedThread{
			Thread:            t,
			LikeCount:         countsByKind["likes"][t.ID],
			ReplyCount:        countsByKind["replies"][t.ID],
			RepostCount:       countsByKind["reposts"][t.ID],
			BookmarkCount:     countsByKind["bookmarks"][t.ID],
			IsLiked:           liked[t.ID],
			IsReposted:        reposted[t.ID],
			IsBookmarked:      bookmarked[t.ID],
			IsFollowingAuthor: following[t.UserID],
		}
	}

	return annotated, nil
}

// AnnotateReplies computes like counts, nested-reply counts, and the viewer's
// like flag for a batch of replies.
func (a *Aggregator) AnnotateReplies(ctx context.Context, replies []models.ThreadReply, viewerID string) ([]AnnotatedReply, error) {
	annotated := make([]AnnotatedReply, len(replies))
	if len(replies) == 0 {
		return annotated, nil
	}

	replyIDs := make([]string, len(replies))
	for i, r := range replies {
		replyIDs[i] = r.ID
	}

	db := a.db.WithContext(ctx)

	var likeRows []countRow
	err := db.Model(&models.ReplyLike{}).
		Select("reply_id AS object_id, COUNT(*) AS n").
		Where("reply_id IN ?", replyIDs).
		Group("reply_id").
		Scan(&likeRows).Error
	if err != nil {
		return nil, fmt.Errorf("reply like count query failed: %w", err)
	}
	likeCounts := make(map[string]int64, len(likeRows))
	for _, r := range likeRows {
		likeCounts[r.ObjectID] = r.N
	}

	var childRows []countRow
	err = db.Model(&models.ThreadReply{}).
		Select("parent_reply_id AS object_id, COUNT(*) AS n").
		Where("parent_reply_id IN ?", replyIDs).
		Group("parent_reply_id").
		Scan(&childRows).Error
	if err != nil {
		return nil, fmt.Errorf("nested reply count query failed: %w", err)
	}
	childCounts := make(map[string]int64, len(childRows))
	for _, r := range childRows {
		childCounts[r.ObjectID] = r.N
	}

	liked := map[string]bool{}
	if viewerID != "" {
		if liked, err = a.viewerEdgeSet(db, &models.ReplyLike{}, "user_id", viewerID, "reply_id", replyIDs); err != nil {
			return nil, fmt.Errorf("reply like flag query failed: %w", err)
		}
	}

	for i, r := range replies {
		annotated[i] = AnnotatedReply{
			ThreadReply: r,
			LikeCount:   likeCounts[r.ID],
			ReplyCount:  childCounts[r.ID],
			IsLiked:     liked[r.ID],
		}
	}

	return annotated, nil
}

// viewerEdgeSet returns the set of object ids for which an edge exists from
// the viewer.
func (a *Aggregator) viewerEdgeSet(db *gorm.DB, model interface{}, subjectCol, subjectID, objectCol string, objectIDs []string) (map[string]bool, error) {
	if len(objectIDs) == 0 {
		return map[string]bool{}, nil
	}
	var ids []string
	err := db.Model(model).
		Where(fmt.Sprintf("%s = ? AND %s IN ?", subjectCol, objectCol), subjectID, objectIDs).
		Pluck(objectCol, &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
