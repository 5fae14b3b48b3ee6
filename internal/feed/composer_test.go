package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/engagement"
	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB creates an in-memory SQLite database. The shared-cache DSN
// keeps every pooled connection on the same database, which matters because
// the aggregator queries concurrently.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:feedtest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

func newTestComposer(db *gorm.DB) *Composer {
	return NewComposer(db, engagement.NewAggregator(db), nil)
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// createTestThread inserts a thread with an explicit creation time so
// ordering is deterministic.
func createTestThread(t *testing.T, db *gorm.DB, userID, content string, mediaType models.MediaType, createdAt time.Time) models.Thread {
	thread := models.Thread{
		UserID:    userID,
		Content:   content,
		MediaType: mediaType,
	}
	if mediaType == models.MediaVideo {
		thread.VideoURL = "https://cdn.example.com/v.mp4"
	}
	require.NoError(t, db.Create(&thread).Error)
	require.NoError(t, db.Model(&thread).UpdateColumn("created_at", createdAt).Error)
	thread.CreatedAt = createdAt
	return thread
}

// contentThreads pulls just the thread entries out of a composed page.
func contentThreads(page *Page) []*engagement.AnnotatedThread {
	var threads []*engagement.AnnotatedThread
	for _, e := range page.Entries {
		if e.Type == EntryThread {
			threads = append(threads, e.Thread)
		}
	}
	return threads
}

func TestLatestFeedVideoInterleave(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("text %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("video %d", i), models.MediaVideo, base.Add(time.Duration(i)*time.Second))
	}

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 15, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 15)

	for i, thread := range threads {
		slot := i + 1
		if slot%VideoSlotInterval == 0 && slot/VideoSlotInterval <= 3 {
			assert.Equal(t, models.MediaVideo, thread.MediaType, "slot %d should be a video", slot)
		} else {
			assert.NotEqual(t, models.MediaVideo, thread.MediaType, "slot %d should not be a video", slot)
		}
	}
}

func TestLatestFeedInterleaveWithoutVideos(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("text %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 10, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 8)
	for _, thread := range threads {
		assert.NotEqual(t, models.MediaVideo, thread.MediaType)
	}
	assert.False(t, page.Meta.HasMore)
}

func TestLatestFeedVideoHeavyStore(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("video %d", i), models.MediaVideo, base.Add(time.Duration(i)*time.Minute))
	}

	composer := newTestComposer(db)

	// The whole store is videos: once the regular stream is empty they
	// drain into every slot, so no item goes missing.
	page, err := composer.Compose(context.Background(), ModeLatest, "", 30, 0)
	require.NoError(t, err)
	require.Len(t, contentThreads(page), 30)
	assert.False(t, page.Meta.HasMore)

	// Every item stays reachable through pagination.
	seen := make(map[string]bool)
	for offset := 0; offset < 30; offset += 10 {
		page, err := composer.Compose(context.Background(), ModeLatest, "", 10, offset)
		require.NoError(t, err)
		threads := contentThreads(page)
		require.Len(t, threads, 10)
		assert.Equal(t, offset+10 < 30, page.Meta.HasMore, "offset %d", offset)
		for _, thread := range threads {
			seen[thread.ID] = true
		}
	}
	assert.Len(t, seen, 30)
}

func TestLatestFeedMostlyVideos(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 2; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("text %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 13; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("video %d", i), models.MediaVideo, base.Add(time.Duration(i)*time.Second))
	}

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 15, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 15)
	assert.False(t, page.Meta.HasMore)

	videos := 0
	for _, thread := range threads {
		if thread.MediaType == models.MediaVideo {
			videos++
		}
	}
	assert.Equal(t, 13, videos)
}

func TestSuggestionAndAdPositions(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	for i := 0; i < 6; i++ {
		createTestUser(t, db, fmt.Sprintf("suggested%d", i))
	}

	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 60; i++ {
		createTestThread(t, db, author.ID, fmt.Sprintf("post %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 60, 0)
	require.NoError(t, err)

	suggestionAfter := map[int]bool{}
	adAfter := map[int]bool{}
	position := 0
	for _, entry := range page.Entries {
		switch entry.Type {
		case EntryThread:
			position++
		case EntrySuggestions:
			assert.False(t, suggestionAfter[position], "duplicate suggestion block after position %d", position)
			suggestionAfter[position] = true
			assert.GreaterOrEqual(t, len(entry.Suggestions), 1)
			assert.LessOrEqual(t, len(entry.Suggestions), SuggestionMaxUsers)
		case EntryAd:
			adAfter[position] = true
			assert.Equal(t, models.AdPlacementFeed, entry.Ad.Placement)
		}
	}
	require.Equal(t, 60, position)

	for _, p := range SuggestionPositions {
		assert.True(t, suggestionAfter[p], "expected suggestion block after position %d", p)
	}
	assert.Len(t, suggestionAfter, len(SuggestionPositions), "suggestion blocks only at the configured positions")

	for p := 1; p <= 60; p++ {
		assert.Equal(t, p%AdSlotInterval == 0, adAfter[p], "ad slot presence after position %d", p)
	}
}

func TestSuggestionPositionOnLaterPage(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	createTestUser(t, db, "other")

	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 20; i++ {
		createTestThread(t, db, author.ID, fmt.Sprintf("post %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}

	// Positions 11..20 of the composed sequence; 14 falls inside this page.
	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 10, 10)
	require.NoError(t, err)

	position := 10
	suggestionAfter := map[int]bool{}
	for _, entry := range page.Entries {
		switch entry.Type {
		case EntryThread:
			position++
		case EntrySuggestions:
			suggestionAfter[position] = true
		}
	}
	assert.True(t, suggestionAfter[14], "position 14 keeps its block on a later page")
	assert.Len(t, suggestionAfter, 1)
}

func TestAdSlotCarriesActivePlacement(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		createTestThread(t, db, author.ID, fmt.Sprintf("post %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	active := models.AdPlacement{Name: "live", Placement: models.AdPlacementFeed, AdCode: "<x>", IsActive: true, StartsAt: &past, EndsAt: &future}
	expired := models.AdPlacement{Name: "expired", Placement: models.AdPlacementFeed, AdCode: "<y>", IsActive: true, EndsAt: &past}
	inactive := models.AdPlacement{Name: "off", Placement: models.AdPlacementFeed, AdCode: "<z>", IsActive: false}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&inactive).Error)

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeLatest, "", 7, 0)
	require.NoError(t, err)

	var adSlots []*AdSlot
	for _, entry := range page.Entries {
		if entry.Type == EntryAd {
			adSlots = append(adSlots, entry.Ad)
		}
	}
	require.Len(t, adSlots, 1)
	require.NotNil(t, adSlots[0].Ad)
	assert.Equal(t, "live", adSlots[0].Ad.Name)
}

func TestTrendingOrderingAndWindow(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	fans := make([]models.User, 4)
	for i := range fans {
		fans[i] = createTestUser(t, db, fmt.Sprintf("fan%d", i))
	}

	now := time.Now()
	lowScore := createTestThread(t, db, author.ID, "three likes", models.MediaText, now.Add(-2*time.Hour))
	highScore := createTestThread(t, db, author.ID, "reply and repost", models.MediaText, now.Add(-3*time.Hour))
	outsideWindow := createTestThread(t, db, author.ID, "old but loved", models.MediaText, now.AddDate(0, 0, -TrendingWindowDays-1))

	// lowScore: 3 likes = score 3
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.ThreadLike{UserID: fans[i].ID, ThreadID: lowScore.ID}).Error)
	}
	// highScore: 1 reply + 1 repost = score 5
	require.NoError(t, db.Create(&models.ThreadReply{ThreadID: highScore.ID, UserID: fans[0].ID, Content: "nice"}).Error)
	require.NoError(t, db.Create(&models.Repost{UserID: fans[1].ID, ThreadID: highScore.ID}).Error)
	// outsideWindow: heavy engagement that must not matter
	for _, fan := range fans {
		require.NoError(t, db.Create(&models.ThreadLike{UserID: fan.ID, ThreadID: outsideWindow.ID}).Error)
	}

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeTrending, "", 20, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 2)
	assert.Equal(t, highScore.ID, threads[0].ID)
	assert.Equal(t, lowScore.ID, threads[1].ID)

	// Offset past the truncated set yields an empty page, not an error.
	empty, err := composer.Compose(context.Background(), ModeTrending, "", 20, TrendingLimit)
	require.NoError(t, err)
	assert.Empty(t, contentThreads(empty))
	assert.False(t, empty.Meta.HasMore)
}

func TestTrendingScoreWeights(t *testing.T) {
	annotated := engagement.AnnotatedThread{LikeCount: 2, ReplyCount: 3, RepostCount: 4}
	assert.Equal(t, int64(2+6+12), TrendingScore(&annotated))
}

func TestFollowingFeedAuthorSet(t *testing.T) {
	db := setupTestDB(t)
	viewer := createTestUser(t, db, "viewer")
	followed := createTestUser(t, db, "followed")
	stranger := createTestUser(t, db, "stranger")

	require.NoError(t, db.Create(&models.Follow{FollowerID: viewer.ID, FolloweeID: followed.ID}).Error)

	now := time.Now()
	wanted := createTestThread(t, db, followed.ID, "from a followed author", models.MediaText, now.Add(-time.Hour))
	createTestThread(t, db, stranger.ID, "from a stranger", models.MediaText, now.Add(-30*time.Minute))

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeFollowing, viewer.ID, 10, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 1)
	assert.Equal(t, wanted.ID, threads[0].ID)

	// No follows means an empty page, not an error.
	lonely := createTestUser(t, db, "lonely")
	page, err = composer.Compose(context.Background(), ModeFollowing, lonely.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, contentThreads(page))

	// Anonymous viewers get an empty page too.
	page, err = composer.Compose(context.Background(), ModeFollowing, "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, contentThreads(page))
}

func TestMentionsSubstringSemantics(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	alice2 := createTestUser(t, db, "alice2")
	poster := createTestUser(t, db, "poster")

	now := time.Now()
	direct := createTestThread(t, db, poster.ID, "hi @alice how are you", models.MediaText, now.Add(-3*time.Hour))
	superstring := createTestThread(t, db, poster.ID, "ping @alice2 about the launch", models.MediaText, now.Add(-2*time.Hour))
	createTestThread(t, db, poster.ID, "no mention at all", models.MediaText, now.Add(-time.Hour))

	composer := newTestComposer(db)

	// @alice2 contains @alice as a substring, so alice sees both.
	page, err := composer.Compose(context.Background(), ModeMentions, alice.ID, 10, 0)
	require.NoError(t, err)
	threads := contentThreads(page)
	require.Len(t, threads, 2)
	assert.Equal(t, superstring.ID, threads[0].ID)
	assert.Equal(t, direct.ID, threads[1].ID)

	// alice2 only matches the thread that names them.
	page, err = composer.Compose(context.Background(), ModeMentions, alice2.ID, 10, 0)
	require.NoError(t, err)
	threads = contentThreads(page)
	require.Len(t, threads, 1)
	assert.Equal(t, superstring.ID, threads[0].ID)
}

func TestMentionsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	poster := createTestUser(t, db, "poster")

	createTestThread(t, db, poster.ID, "shout out to @ALICE", models.MediaText, time.Now().Add(-time.Hour))

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeMentions, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, contentThreads(page), 1)
}

func TestVideoFeedPurity(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	now := time.Now()
	createTestThread(t, db, user.ID, "text post", models.MediaText, now.Add(-3*time.Hour))
	createTestThread(t, db, user.ID, "image post", models.MediaImage, now.Add(-2*time.Hour))
	video := createTestThread(t, db, user.ID, "a video", models.MediaVideo, now.Add(-time.Hour))

	composer := newTestComposer(db)
	page, err := composer.Compose(context.Background(), ModeVideo, "", 10, 0)
	require.NoError(t, err)

	threads := contentThreads(page)
	require.Len(t, threads, 1)
	assert.Equal(t, video.ID, threads[0].ID)
	assert.Equal(t, models.MediaVideo, threads[0].MediaType)
}

func TestPaginationHasMore(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "poster")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		createTestThread(t, db, user.ID, fmt.Sprintf("post %d", i), models.MediaText, base.Add(time.Duration(i)*time.Minute))
	}

	composer := newTestComposer(db)

	first, err := composer.Compose(context.Background(), ModeLatest, "", 5, 0)
	require.NoError(t, err)
	assert.Len(t, contentThreads(first), 5)
	assert.True(t, first.Meta.HasMore)

	second, err := composer.Compose(context.Background(), ModeLatest, "", 5, 5)
	require.NoError(t, err)
	assert.Len(t, contentThreads(second), 2)
	assert.False(t, second.Meta.HasMore)
}

func TestComposeUnknownMode(t *testing.T) {
	db := setupTestDB(t)
	composer := newTestComposer(db)

	_, err := composer.Compose(context.Background(), Mode("bogus"), "", 10, 0)
	assert.Error(t, err)
}

func TestSuggestedUsersExcludesFollowed(t *testing.T) {
	db := setupTestDB(t)
	viewer := createTestUser(t, db, "viewer")
	followed := createTestUser(t, db, "followed")
	fresh := createTestUser(t, db, "fresh")
	prolific := createTestUser(t, db, "prolific")

	require.NoError(t, db.Model(&prolific).UpdateColumn("thread_count", 50).Error)
	require.NoError(t, db.Model(&fresh).UpdateColumn("thread_count", 5).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: viewer.ID, FolloweeID: followed.ID}).Error)

	composer := newTestComposer(db)
	suggested, err := composer.SuggestedUsers(context.Background(), viewer.ID, SuggestionMaxUsers)
	require.NoError(t, err)

	ids := make([]string, len(suggested))
	for i, s := range suggested {
		ids[i] = s.ID
	}
	assert.NotContains(t, ids, viewer.ID)
	assert.NotContains(t, ids, followed.ID)
	require.Len(t, suggested, 2)
	assert.Equal(t, prolific.ID, suggested[0].ID, "ranked by thread count descending")
	assert.Equal(t, int64(50), suggested[0].ThreadCount)
}
