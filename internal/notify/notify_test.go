package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:notifytest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
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

func notificationsFor(t *testing.T, db *gorm.DB, userID string) []models.Notification {
	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	return notifications
}

func TestEmitCreatesNotification(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")
	threadID := "thread-1"

	service := NewService(db)
	require.NoError(t, service.Emit(context.Background(), author.ID, fan.ID, models.NotificationLike, &threadID))

	notifications := notificationsFor(t, db, author.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationLike, notifications[0].Type)
	assert.Equal(t, fan.ID, notifications[0].ActorID)
	require.NotNil(t, notifications[0].ThreadID)
	assert.Equal(t, threadID, *notifications[0].ThreadID)
	assert.False(t, notifications[0].IsRead)
}

func TestEmitSkipsSelfNotification(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "solo")

	service := NewService(db)
	require.NoError(t, service.Emit(context.Background(), user.ID, user.ID, models.NotificationLike, nil))

	assert.Empty(t, notificationsFor(t, db, user.ID))
}

func TestEmitMentionsResolvedAndUnresolved(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	alice := createTestUser(t, db, "alice")

	service := NewService(db)
	err := service.EmitMentions(context.Background(), author.ID, "thread-1", "hey @alice and @ghost, welcome")
	require.NoError(t, err)

	// alice resolves; ghost does not exist and is skipped silently.
	notifications := notificationsFor(t, db, alice.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationMention, notifications[0].Type)
	assert.Equal(t, author.ID, notifications[0].ActorID)

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestEmitMentionsCaseInsensitiveResolution(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	alice := createTestUser(t, db, "alice")

	service := NewService(db)
	require.NoError(t, service.EmitMentions(context.Background(), author.ID, "thread-1", "congrats @ALICE"))

	assert.Len(t, notificationsFor(t, db, alice.ID), 1)
}

func TestEmitMentionsDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")
	alice := createTestUser(t, db, "alice")

	service := NewService(db)
	require.NoError(t, service.EmitMentions(context.Background(), author.ID, "thread-1", "@alice @alice @ALICE"))

	assert.Len(t, notificationsFor(t, db, alice.ID), 1)
}

func TestEmitMentionsNoSelfMention(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")

	service := NewService(db)
	require.NoError(t, service.EmitMentions(context.Background(), author.ID, "thread-1", "note to self @author"))

	assert.Empty(t, notificationsFor(t, db, author.ID))
}

func TestEmitMentionsNoTokens(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author")

	service := NewService(db)
	require.NoError(t, service.EmitMentions(context.Background(), author.ID, "thread-1", "nothing to see"))

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	assert.Zero(t, total)
}
