package worker

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"link-tracker/internal/handler/http/respond"
)

// HealthServer serves liveness and readiness probes for the scrapper.
//
// Endpoints:
//   - GET /health: always 200 while the process serves requests
//   - GET /health/ready: 200 when the ready probe reports true, 503 otherwise
type HealthServer struct {
	addr   string
	logger *slog.Logger
	ready  func() bool
	server *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer creates a HealthServer listening on addr.
// ready is consulted on every readiness request; nil means never ready.
func NewHealthServer(addr string, logger *slog.Logger, ready func() bool) *HealthServer {
	if ready == nil {
		ready = func() bool { return false }
	}
	return &HealthServer{
		addr:   addr,
		logger: logger,
		ready:  ready,
	}
}

// Handler returns the probe routes.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
// It returns http.ErrServerClosed after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.ready() {
		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}
