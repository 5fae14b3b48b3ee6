// Package backend provides the Weave API server.

// This package contains the main application entry points under cmd/. The
// actual implementation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/feed: Feed composition (latest, trending, following, mentions, video)
// - internal/engagement: Engagement count aggregation and viewer flags
// - internal/notify: Notification fan-out
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and migrations
// - internal/cache: Redis cache client
// - internal/middleware: HTTP middleware (request ids, logging, metrics)
// - internal/metrics: Prometheus metrics
// - internal/seed: Development and test data seeding

// See the individual package documentation for detailed API reference.
package backend
