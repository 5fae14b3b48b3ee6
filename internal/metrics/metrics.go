package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Feed metrics
	FeedCompositionTime prometheus.HistogramVec
	FeedCacheHitsTotal  prometheus.CounterVec
	FeedCacheMissTotal  prometheus.CounterVec

	// Engagement metrics
	EngagementTogglesTotal prometheus.CounterVec
	NotificationsTotal     prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method", "path"},
			),
			FeedCompositionTime: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_composition_duration_seconds",
					Help:    "Time spent composing a feed page, by mode",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
				},
				[]string{"mode"},
			),
			FeedCacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_cache_hits_total",
					Help: "Cache hits for precomputed feed data",
				},
				[]string{"cache"},
			),
			FeedCacheMissTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_cache_misses_total",
					Help: "Cache misses for precomputed feed data",
				},
				[]string{"cache"},
			),
			EngagementTogglesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_toggles_total",
					Help: "Toggle operations by edge kind and direction",
				},
				[]string{"kind", "direction"},
			),
			NotificationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Notifications created, by type",
				},
				[]string{"type"},
			),
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Application errors by type and endpoint",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}

// RecordFeedComposition records how long a feed page took to compose.
func RecordFeedComposition(mode string, duration time.Duration) {
	Get().FeedCompositionTime.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordToggle records an engagement toggle (kind: like, repost, bookmark,
// follow, mute, block; direction: on, off).
func RecordToggle(kind, direction string) {
	Get().EngagementTogglesTotal.WithLabelValues(kind, direction).Inc()
}

// RecordNotification records a created notification by type.
func RecordNotification(notificationType string) {
	Get().NotificationsTotal.WithLabelValues(notificationType).Inc()
}

// RecordError records an application error for alerting.
func RecordError(errorType, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordCacheHit records a feed cache hit.
func RecordCacheHit(cacheName string) {
	Get().FeedCacheHitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss records a feed cache miss.
func RecordCacheMiss(cacheName string) {
	Get().FeedCacheMissTotal.WithLabelValues(cacheName).Inc()
}
