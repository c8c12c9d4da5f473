// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the scrapper's metrics:
//   - Platform API metrics (requests, duration, degraded responses)
//   - Update detection metrics (events, link checks, snapshot size, watermarks)
//   - Database query metrics
//
// All metrics are registered with the Prometheus default registry and exposed
// via the /metrics endpoint.
//
// Example usage:
//
//	start := time.Now()
//	resp, err := client.Do(req)
//	metrics.RecordPlatformRequest("github", "pulls", resp.StatusCode, time.Since(start))
package metrics
