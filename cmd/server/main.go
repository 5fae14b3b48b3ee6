package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaveapp/weave/backend/internal/auth"
	"github.com/weaveapp/weave/backend/internal/cache"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/engagement"
	"github.com/weaveapp/weave/backend/internal/feed"
	"github.com/weaveapp/weave/backend/internal/handlers"
	"github.com/weaveapp/weave/backend/internal/logger"
	"github.com/weaveapp/weave/backend/internal/metrics"
	"github.com/weaveapp/weave/backend/internal/middleware"
	"github.com/weaveapp/weave/backend/internal/notify"
	"github.com/weaveapp/weave/backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Weave server starting ===")

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		log.Fatalf("JWT_SECRET environment variable is required")
	}
	authService := auth.NewService(jwtSecret)

	// Redis backs the trending caches; the server runs without it
	var redisClient *cache.RedisClient
	if rc, err := cache.NewRedisClient(os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"), os.Getenv("REDIS_PASSWORD")); err != nil {
		logger.WarnWithFields("Redis unavailable, trending caches disabled", err)
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	// Initialize S3 uploader for media attachments
	s3Uploader, err := storage.NewS3Uploader(
		os.Getenv("AWS_REGION"),
		os.Getenv("AWS_BUCKET"),
		os.Getenv("CDN_BASE_URL"),
	)
	if err != nil {
		log.Fatalf("Failed to initialize S3 uploader: %v", err)
	}
	if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
		logger.WarnWithFields("S3 bucket access failed, media uploads will fail", err)
	}

	metrics.Initialize()

	// Wire the feed pipeline
	aggregator := engagement.NewAggregator(database.DB)
	composer := feed.NewComposer(database.DB, aggregator, redisClient)
	notifier := notify.NewService(database.DB)

	h := handlers.NewHandlers(composer, aggregator, notifier, authService)
	h.SetUploader(s3Uploader)

	// Setup Gin router
	gin.SetMode(os.Getenv("GIN_MODE"))
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := database.Health(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "weave-backend",
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api/v1")
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", authService.RequireAuth(), h.Me)
		}

		// Feed (anonymous reads allowed; following/mentions reject inside)
		api.GET("/feed", authService.OptionalAuth(), h.GetFeed)

		// Trending surfaces (public)
		trending := api.Group("/trending")
		{
			trending.Use(authService.OptionalAuth())
			trending.GET("/threads", h.GetTrendingThreads)
			trending.GET("/hashtags", h.GetTrendingHashtags)
			trending.GET("/users", h.GetTrendingUsers)
			trending.GET("/videos", h.GetTrendingVideos)
		}

		// Thread routes
		threads := api.Group("/threads")
		{
			threads.GET("/:id", authService.OptionalAuth(), h.GetThread)
			threads.GET("/:id/replies", authService.OptionalAuth(), h.GetReplies)

			threads.POST("", authService.RequireAuth(), h.CreateThread)
			threads.DELETE("/:id", authService.RequireAuth(), h.DeleteThread)
			threads.POST("/:id/replies", authService.RequireAuth(), h.CreateReply)
			threads.POST("/:id/like", authService.RequireAuth(), h.ToggleLike)
			threads.POST("/:id/repost", authService.RequireAuth(), h.ToggleRepost)
			threads.POST("/:id/bookmark", authService.RequireAuth(), h.ToggleBookmark)
		}

		api.POST("/replies/:id/like", authService.RequireAuth(), h.ToggleReplyLike)

		// User routes
		users := api.Group("/users")
		{
			users.GET("/suggested", authService.OptionalAuth(), h.GetSuggestedUsers)
			users.PUT("/me", authService.RequireAuth(), h.UpdateProfile)

			users.GET("/:id", authService.OptionalAuth(), h.GetUserProfile)
			users.GET("/:id/threads", authService.OptionalAuth(), h.GetUserThreads)
			users.GET("/:id/likes", authService.OptionalAuth(), h.GetLikedThreads)
			users.GET("/:id/followers", authService.OptionalAuth(), h.GetFollowers)
			users.GET("/:id/following", authService.OptionalAuth(), h.GetFollowing)

			users.POST("/:id/follow", authService.RequireAuth(), h.ToggleFollow)
			users.POST("/:id/mute", authService.RequireAuth(), h.ToggleMute)
			users.POST("/:id/block", authService.RequireAuth(), h.ToggleBlock)
		}

		api.GET("/bookmarks", authService.RequireAuth(), h.GetBookmarks)

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.Use(authService.RequireAuth())
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadNotificationCount)
			notifications.POST("/read", h.MarkNotificationsRead)
		}

		// Direct messages
		messages := api.Group("/messages")
		{
			messages.Use(authService.RequireAuth())
			messages.GET("", h.GetConversations)
			messages.POST("", h.SendMessage)
			messages.GET("/:id", h.GetConversation)
			messages.POST("/:id/read", h.MarkConversationRead)
		}

		// Search routes
		search := api.Group("/search")
		{
			search.Use(authService.OptionalAuth())
			search.GET("/users", h.SearchUsers)
			search.GET("/threads", h.SearchThreads)
		}

		// Media upload
		api.POST("/upload", authService.RequireAuth(), h.UploadMedia)

		// Public active ads by placement
		api.GET("/ads/active", h.GetActiveAds)

		// Ads admin
		admin := api.Group("/admin")
		{
			admin.Use(authService.RequireAuth(), authService.RequireAdmin())
			admin.GET("/ads", h.ListAds)
			admin.POST("/ads", h.CreateAd)
			admin.PUT("/ads/:id", h.UpdateAd)
			admin.DELETE("/ads/:id", h.DeleteAd)
		}
	}

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8787"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Weave backend starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
