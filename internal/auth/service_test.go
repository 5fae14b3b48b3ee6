package auth

import (
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

// setupTestDB points the package-global database handle at a fresh in-memory
// SQLite database.
func setupTestDB(t *testing.T) {
	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	database.DB = db
}

func testRegisterRequest(username string) RegisterRequest {
	return RegisterRequest{
		Email:       username + "@example.com",
		Username:    username,
		Password:    "hunter2hunter2",
		DisplayName: "Test " + username,
	}
}

func TestRegisterAndValidateToken(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	resp, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.True(t, resp.ExpiresAt.After(resp.User.CreatedAt))

	user, err := service.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	_, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)

	dup := testRegisterRequest("different")
	dup.Email = "ALICE@example.com" // case-insensitive match
	_, err = service.Register(dup)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	_, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)

	dup := testRegisterRequest("Alice")
	dup.Email = "other@example.com"
	_, err = service.Register(dup)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestLogin(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	_, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)

	resp, err := service.Login(LoginRequest{Email: "alice@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = service.Login(LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(LoginRequest{Email: "nobody@example.com", Password: "hunter2hunter2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	resp, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)

	other := NewService([]byte("different-secret"))
	_, err = other.ValidateToken(resp.Token)
	assert.Error(t, err)
}

func TestValidateTokenReturnsFreshUser(t *testing.T) {
	setupTestDB(t)
	service := NewService([]byte("test-secret"))

	resp, err := service.Register(testRegisterRequest("alice"))
	require.NoError(t, err)

	// Profile changes after issuing the token are reflected on validation.
	require.NoError(t, database.DB.Model(&models.User{}).
		Where("id = ?", resp.User.ID).
		Update("display_name", "Renamed").Error)

	user, err := service.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.DisplayName)
}
