package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"link-tracker/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdatesPath is the bot endpoint accepting link updates.
const UpdatesPath = "/api/v1/updates"

// BotConfig contains configuration for the bot HTTP client.
type BotConfig struct {
	// Enabled turns delivery on; when false updates are only logged
	Enabled bool

	// BaseURL is the bot service root, e.g. http://localhost:7777
	BaseURL string

	// Timeout is the HTTP request timeout for a single delivery
	Timeout time.Duration

	// RequestsPerSecond caps the delivery rate; zero disables limiting
	RequestsPerSecond float64

	// Burst is the number of deliveries allowed back to back
	Burst int
}

// DefaultBotConfig returns the configuration used when nothing is overridden.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		Enabled:           true,
		BaseURL:           "http://localhost:7777",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 20,
		Burst:             10,
	}
}

// BotNotifier posts link updates to the bot service.
// Each update is delivered at most once; failures are returned, never retried.
type BotNotifier struct {
	endpoint    string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewBotNotifier creates a BotNotifier for config.
func NewBotNotifier(config BotConfig) *BotNotifier {
	return &BotNotifier{
		endpoint: strings.TrimRight(config.BaseURL, "/") + UpdatesPath,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
	}
}

// Endpoint returns the full URL updates are posted to.
func (b *BotNotifier) Endpoint() string {
	return b.endpoint
}

// sendRequest posts the update and maps the response to an error.
//
// Error types:
//   - 429: RateLimitError
//   - 4xx: ClientError
//   - 5xx: ServerError
//   - any other non-200 status: plain error
func (b *BotNotifier) sendRequest(ctx context.Context, update *entity.LinkUpdate, requestID string) error {
	jsonData, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal link update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	message := describeFailure(resp.StatusCode, body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    message,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: message}
	}
	return errors.New(message)
}

// describeFailure prefers the structured bot error body over the raw text.
func describeFailure(status int, body []byte) string {
	var apiErr ApiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if s := apiErr.summary(); s != "" {
			return fmt.Sprintf("bot API returned %d: %s", status, s)
		}
	}
	if len(body) == 0 {
		return fmt.Sprintf("bot API returned %d", status)
	}
	return fmt.Sprintf("bot API returned %d: %s", status, truncateBody(body, 512))
}

func parseRetryAfter(header string) time.Duration {
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// NotifyUpdate delivers update to {BaseURL}/api/v1/updates.
//
// It performs the following steps:
//  1. Generate a request id sent as X-Request-ID
//  2. Wait for the rate limiter
//  3. POST the JSON payload once
func (b *BotNotifier) NotifyUpdate(ctx context.Context, update *entity.LinkUpdate) error {
	if update == nil {
		return fmt.Errorf("notify update: %w", entity.ErrInvalidInput)
	}

	requestID := uuid.New().String()

	if err := b.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	if err := b.sendRequest(ctx, update, requestID); err != nil {
		return err
	}

	slog.Debug("link update delivered",
		slog.String("request_id", requestID),
		slog.Int64("update_id", update.ID),
		slog.String("url", update.URL),
		slog.Int("chats", len(update.ChatIDs)))
	return nil
}
