// Package notifier delivers link update notifications to downstream services.
// It defines the Notifier interface so that the bot HTTP client can be
// replaced through dependency injection.
package notifier

import (
	"context"

	"link-tracker/internal/domain/entity"
)

// Notifier sends a single link update notification.
type Notifier interface {
	// NotifyUpdate delivers update to the downstream service.
	// Implementations make exactly one delivery attempt and return a typed
	// error (ClientError, ServerError, RateLimitError) for rejected requests.
	NotifyUpdate(ctx context.Context, update *entity.LinkUpdate) error
}
