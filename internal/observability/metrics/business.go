package metrics

import (
	"strconv"
	"time"
)

// RecordPlatformRequest records a single platform API request.
// statusCode is the HTTP status, or 0 when no response was received.
func RecordPlatformRequest(platform, endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	PlatformRequestsTotal.WithLabelValues(platform, endpoint, status).Inc()
	PlatformRequestDuration.WithLabelValues(platform, endpoint).Observe(duration.Seconds())
}

// RecordPlatformDegraded records a sub-request whose failure was turned into an empty result.
func RecordPlatformDegraded(platform, endpoint string) {
	PlatformDegradedTotal.WithLabelValues(platform, endpoint).Inc()
}

// RecordUpdateDetected records one update event found for a link.
func RecordUpdateDetected(platform, updateType string) {
	UpdatesDetectedTotal.WithLabelValues(platform, updateType).Inc()
}

// RecordLinkCheck records the outcome of checking a single link.
// Result should be "success", "error" or "panic".
func RecordLinkCheck(platform, result string) {
	if platform == "" {
		platform = "unknown"
	}
	LinkChecksTotal.WithLabelValues(platform, result).Inc()
}

// UpdateTrackedLinks sets the size of the latest link snapshot.
func UpdateTrackedLinks(count int) {
	TrackedLinks.Set(float64(count))
}

// UpdateWatermarks sets the number of recorded watermarks.
func UpdateWatermarks(count int) {
	Watermarks.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query, e.g. "list_tracked".
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
