package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/weaveapp/weave/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "weave")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(AllModels()...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// AllModels lists every persisted model, in foreign-key order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Thread{},
		&models.ThreadReply{},
		&models.ThreadLike{},
		&models.ReplyLike{},
		&models.Repost{},
		&models.Bookmark{},
		&models.Follow{},
		&models.MutedUser{},
		&models.BlockedUser{},
		&models.Notification{},
		&models.Message{},
		&models.AdPlacement{},
	}
}

// createIndexes creates performance and uniqueness indexes
func createIndexes() error {
	// User lookups are case-insensitive
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")

	// Thread feed queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_threads_user_created ON threads (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_threads_media_created ON threads (media_type, created_at DESC)")

	// Reply retrieval
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_thread_replies_thread_created ON thread_replies (thread_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_thread_replies_parent ON thread_replies (parent_reply_id) WHERE parent_reply_id IS NOT NULL")

	// Engagement edges: at most one edge per (subject, object) pair.
	// Toggle semantics depend on these.
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_thread_likes_unique ON thread_likes (user_id, thread_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reply_likes_unique ON reply_likes (user_id, reply_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reposts_unique ON reposts (user_id, thread_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_unique ON bookmarks (user_id, thread_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_unique ON follows (follower_id, followee_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_muted_users_unique ON muted_users (user_id, muted_user_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_blocked_users_unique ON blocked_users (user_id, blocked_user_id)")

	// Count queries scan by object
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_thread_likes_thread ON thread_likes (thread_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reposts_thread ON reposts (thread_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_bookmarks_thread ON bookmarks (thread_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows (followee_id)")

	// Notification badge queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications (user_id) WHERE is_read = false")

	// Conversation queries look up both directions
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_messages_sender_recipient ON messages (sender_id, recipient_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_messages_recipient_sender ON messages (recipient_id, sender_id, created_at DESC)")

	// Active ad lookup by placement
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_ad_placements_active ON ad_placements (placement, is_active)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
