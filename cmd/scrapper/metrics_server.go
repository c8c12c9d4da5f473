package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"link-tracker/internal/handler/http/respond"
	"link-tracker/internal/usecase/notify"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ChannelHealthResponse represents the health status of all notification channels.
type ChannelHealthResponse struct {
	Healthy  bool                         `json:"healthy"`
	Channels []notify.ChannelHealthStatus `json:"channels"`
}

// newMetricsMux builds the routes of the metrics server:
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /health - Simple liveness probe (always returns 200 OK)
//   - GET /health/channels - Delivery channel health and failure counts
func newMetricsMux(notifyService notify.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/health/channels", channelHealthHandler(notifyService))
	return mux
}

// runMetricsServer serves the metrics routes on port until ctx is canceled,
// then shuts down within 5 seconds.
func runMetricsServer(ctx context.Context, logger *slog.Logger, port int, notifyService notify.Service) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMetricsMux(notifyService),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error("metrics server error", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	logger.Info("metrics server shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("error", err))
		return err
	}
	logger.Info("metrics server stopped")
	return http.ErrServerClosed
}

// healthHandler handles GET /health requests (liveness probe).
func healthHandler(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// channelHealthHandler reports 503 while any enabled channel is degraded.
func channelHealthHandler(notifyService notify.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := notifyService.GetChannelHealth()

		healthy := true
		for _, status := range statuses {
			if status.Enabled && status.Degraded {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		respond.JSON(w, statusCode, ChannelHealthResponse{
			Healthy:  healthy,
			Channels: statuses,
		})
	}
}
