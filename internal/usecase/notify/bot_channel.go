package notify

import (
	"context"
	"fmt"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/infra/notifier"
)

// BotChannel implements Channel on top of the bot HTTP notifier.
type BotChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewBotChannel creates a BotChannel. A disabled channel has no notifier; it
// is still listed in health output and the service skips it.
func NewBotChannel(config notifier.BotConfig) *BotChannel {
	if !config.Enabled {
		return newBotChannel(nil, false)
	}
	return newBotChannel(notifier.NewBotNotifier(config), true)
}

func newBotChannel(n notifier.Notifier, enabled bool) *BotChannel {
	return &BotChannel{notifier: n, enabled: enabled}
}

// Name returns "bot".
func (c *BotChannel) Name() string {
	return "bot"
}

// IsEnabled returns whether bot delivery is enabled.
func (c *BotChannel) IsEnabled() bool {
	return c.enabled
}

// Send validates update and hands it to the notifier.
func (c *BotChannel) Send(ctx context.Context, update *entity.LinkUpdate) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if update == nil {
		return ErrInvalidUpdate
	}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	return c.notifier.NotifyUpdate(ctx, update)
}
