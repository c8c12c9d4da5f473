// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Platform metrics track calls to the GitHub and StackExchange APIs
var (
	// PlatformRequestsTotal counts platform API requests by outcome
	PlatformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_requests_total",
			Help: "Total number of platform API requests",
		},
		[]string{"platform", "endpoint", "status"},
	)

	// PlatformRequestDuration measures platform API request duration in seconds
	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Platform API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"platform", "endpoint"},
	)

	// PlatformDegradedTotal counts sub-requests that yielded no data for a cycle
	PlatformDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_degraded_responses_total",
			Help: "Total number of platform sub-requests treated as empty after a failure",
		},
		[]string{"platform", "endpoint"},
	)
)

// Business metrics track update detection
var (
	// UpdatesDetectedTotal counts update events found on tracked links
	UpdatesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updates_detected_total",
			Help: "Total number of update events detected",
		},
		[]string{"platform", "type"},
	)

	// LinkChecksTotal counts per-link checks by result
	LinkChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_checks_total",
			Help: "Total number of link checks",
		},
		[]string{"platform", "result"}, // result: success|error|panic
	)

	// TrackedLinks tracks the number of distinct URLs in the latest snapshot
	TrackedLinks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracked_links",
			Help: "Number of distinct tracked URLs in the latest poll cycle",
		},
	)

	// Watermarks tracks the number of URLs with a recorded watermark
	Watermarks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watermarks",
			Help: "Number of URLs with a recorded last-check watermark",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
