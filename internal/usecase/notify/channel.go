// Package notify dispatches link update notifications to delivery channels.
// Delivery is best effort: failures are logged and counted, never returned to
// the poll loop.
package notify

import (
	"context"

	"link-tracker/internal/domain/entity"
)

// Channel is a notification delivery channel.
//
// Implementations make a single delivery attempt and must respect context
// cancellation. They must be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier used in logs, metrics and health output.
	Name() string

	// IsEnabled reports whether the channel should receive notifications.
	IsEnabled() bool

	// Send delivers update.
	//
	// Returns:
	//   - ErrChannelDisabled: if called on a disabled channel
	//   - ErrInvalidUpdate: if update is nil or fails validation
	//   - transport or API errors from the underlying notifier
	Send(ctx context.Context, update *entity.LinkUpdate) error
}
