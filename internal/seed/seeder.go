// Package seed fills a development or test database with realistic fake data.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/weaveapp/weave/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder populates the database with fake users, threads, and engagement.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a seeder backed by db.
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var seedHashtags = []string{
	"golang", "music", "art", "coffee", "travel", "fitness",
	"photography", "books", "gaming", "food",
}

// SeedDev seeds a development database: 50 users, 400 threads, and enough
// engagement that every feed mode has content.
func (s *Seeder) SeedDev() error {
	users, err := s.seedUsers(50)
	if err != nil {
		return err
	}
	threads, err := s.seedThreads(users, 400)
	if err != nil {
		return err
	}
	if err := s.seedReplies(users, threads, 600); err != nil {
		return err
	}
	if err := s.seedEngagement(users, threads); err != nil {
		return err
	}
	if err := s.seedFollows(users); err != nil {
		return err
	}
	if err := s.seedMessages(users, 200); err != nil {
		return err
	}
	return s.seedAds()
}

// SeedTest seeds a minimal fixture set for integration tests.
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(5)
	if err != nil {
		return err
	}
	threads, err := s.seedThreads(users, 20)
	if err != nil {
		return err
	}
	if err := s.seedReplies(users, threads, 10); err != nil {
		return err
	}
	return s.seedFollows(users)
}

// Clean removes all rows from every table. Development only.
func (s *Seeder) Clean() error {
	tables := []interface{}{
		&models.Notification{}, &models.Message{},
		&models.ThreadLike{}, &models.ReplyLike{}, &models.Repost{}, &models.Bookmark{},
		&models.Follow{}, &models.MutedUser{}, &models.BlockedUser{},
		&models.ThreadReply{}, &models.Thread{},
		&models.AdPlacement{}, &models.User{},
	}
	for _, table := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clean table %T: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordHash := string(hash)

	users := make([]models.User, 0, count)
	seen := map[string]bool{}
	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		for seen[username] {
			username = strings.ToLower(gofakeit.Username())
		}
		seen[username] = true

		user := models.User{
			Email:        fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Username:     username,
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.HipsterSentence(),
			PasswordHash: &passwordHash,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedThreads(users []models.User, count int) ([]models.Thread, error) {
	threads := make([]models.Thread, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		content := gofakeit.HipsterSentence()
		if rand.Intn(3) == 0 {
			content += " #" + seedHashtags[rand.Intn(len(seedHashtags))]
		}
		if rand.Intn(5) == 0 {
			content += " @" + users[rand.Intn(len(users))].Username
		}

		thread := models.Thread{
			UserID:    author.ID,
			Content:   content,
			MediaType: models.MediaText,
		}
		switch rand.Intn(5) {
		case 0:
			thread.MediaType = models.MediaVideo
			thread.VideoURL = fmt.Sprintf("https://cdn.example.com/video/%s.mp4", gofakeit.UUID())
		case 1:
			thread.MediaType = models.MediaImage
			thread.ImageURL = fmt.Sprintf("https://cdn.example.com/img/%s.jpg", gofakeit.UUID())
		}
		// Occasional quote of an earlier thread
		if len(threads) > 0 && rand.Intn(10) == 0 {
			quoted := threads[rand.Intn(len(threads))]
			thread.QuoteThreadID = &quoted.ID
		}

		if err := s.db.Create(&thread).Error; err != nil {
			return nil, fmt.Errorf("failed to seed thread: %w", err)
		}

		// Spread creation times over the trailing month so trending windows
		// have edges to work with
		createdAt := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		if err := s.db.Model(&thread).UpdateColumn("created_at", createdAt).Error; err != nil {
			return nil, err
		}
		thread.CreatedAt = createdAt
		threads = append(threads, thread)
	}

	for i := range users {
		var count int64
		if err := s.db.Model(&models.Thread{}).Where("user_id = ?", users[i].ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(&users[i]).UpdateColumn("thread_count", count).Error; err != nil {
			return nil, err
		}
	}
	return threads, nil
}

func (s *Seeder) seedReplies(users []models.User, threads []models.Thread, count int) error {
	for i := 0; i < count; i++ {
		reply := models.ThreadReply{
			ThreadID: threads[rand.Intn(len(threads))].ID,
			UserID:   users[rand.Intn(len(users))].ID,
			Content:  gofakeit.HipsterSentence(),
		}
		if err := s.db.Create(&reply).Error; err != nil {
			return fmt.Errorf("failed to seed reply: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedEngagement(users []models.User, threads []models.Thread) error {
	for _, thread := range threads {
		for _, user := range users {
			if rand.Intn(4) == 0 {
				like := models.ThreadLike{UserID: user.ID, ThreadID: thread.ID}
				if err := s.db.Create(&like).Error; err != nil {
					return err
				}
			}
			if rand.Intn(10) == 0 {
				repost := models.Repost{UserID: user.ID, ThreadID: thread.ID}
				if err := s.db.Create(&repost).Error; err != nil {
					return err
				}
			}
			if rand.Intn(12) == 0 {
				bookmark := models.Bookmark{UserID: user.ID, ThreadID: thread.ID}
				if err := s.db.Create(&bookmark).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) seedFollows(users []models.User) error {
	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID || rand.Intn(5) != 0 {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
			if err := s.db.Create(&follow).Error; err != nil {
				return err
			}
		}
	}

	for i := range users {
		var followers, following int64
		if err := s.db.Model(&models.Follow{}).Where("followee_id = ?", users[i].ID).Count(&followers).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.Follow{}).Where("follower_id = ?", users[i].ID).Count(&following).Error; err != nil {
			return err
		}
		err := s.db.Model(&users[i]).UpdateColumns(map[string]interface{}{
			"follower_count":  followers,
			"following_count": following,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedMessages(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		sender := users[rand.Intn(len(users))]
		recipient := users[rand.Intn(len(users))]
		if sender.ID == recipient.ID {
			continue
		}
		message := models.Message{
			SenderID:    sender.ID,
			RecipientID: recipient.ID,
			Content:     gofakeit.HipsterSentence(),
			IsRead:      rand.Intn(2) == 0,
		}
		if err := s.db.Create(&message).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedAds() error {
	placements := []models.AdPlacementPosition{
		models.AdPlacementFeed, models.AdPlacementSidebar,
		models.AdPlacementProfile, models.AdPlacementVideo,
	}
	for _, placement := range placements {
		ad := models.AdPlacement{
			Name:      fmt.Sprintf("%s house ad", placement),
			Placement: placement,
			AdCode:    fmt.Sprintf("<div class=\"ad\">%s</div>", gofakeit.Company()),
			IsActive:  true,
		}
		if err := s.db.Create(&ad).Error; err != nil {
			return err
		}
	}
	return nil
}
