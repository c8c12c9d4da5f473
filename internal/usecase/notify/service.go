package notify

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"link-tracker/internal/domain/entity"
)

const (
	degradedThreshold   = 5                // consecutive failures before a channel reports degraded
	notificationTimeout = 30 * time.Second // upper bound for a single delivery
)

// Service dispatches link updates to every enabled channel.
type Service interface {
	// Send delivers update to all enabled channels, one after another, and
	// returns once every channel has finished. Failures are logged and
	// swallowed. Send never panics.
	Send(ctx context.Context, update *entity.LinkUpdate)

	// GetChannelHealth returns the health status of all notification channels.
	GetChannelHealth() []ChannelHealthStatus
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	Degraded            bool       `json:"degraded"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
}

type service struct {
	channels      []Channel
	channelHealth map[string]*channelHealth
	now           func() time.Time
}

// channelHealth tracks delivery failures for a channel. It only feeds health
// output; every update is still attempted.
type channelHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	lastFailure         time.Time
}

// NewService creates a notification service for channels.
func NewService(channels ...Channel) Service {
	return newService(time.Now, channels...)
}

func newService(now func() time.Time, channels ...Channel) *service {
	svc := &service{
		channels:      channels,
		channelHealth: make(map[string]*channelHealth, len(channels)),
		now:           now,
	}
	enabled := 0
	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(float64(enabled))
	return svc
}

// Send implements Service.Send.
func (s *service) Send(ctx context.Context, update *entity.LinkUpdate) {
	if update == nil {
		slog.Warn("Invalid notification input", slog.Bool("nil_update", true))
		return
	}

	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			slog.Debug("Notification channel disabled, update logged only",
				slog.String("channel", ch.Name()),
				slog.Int64("update_id", update.ID),
				slog.String("url", update.URL))
			RecordDropped(ch.Name(), "disabled")
			continue
		}
		s.sendToChannel(ctx, ch, update)
	}
}

// sendToChannel performs one delivery and updates the channel's health.
func (s *service) sendToChannel(ctx context.Context, channel Channel, update *entity.LinkUpdate) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in notification channel",
				slog.String("channel", channel.Name()),
				slog.Int64("update_id", update.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			s.recordResult(channel.Name(), false)
			RecordFailure(channel.Name(), 0)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()

	RecordDispatch(channel.Name())
	start := time.Now()
	err := channel.Send(sendCtx, update)
	duration := time.Since(start)

	s.recordResult(channel.Name(), err == nil)

	if err != nil {
		RecordFailure(channel.Name(), duration)
		slog.Error("Failed to deliver link update",
			slog.String("channel", channel.Name()),
			slog.Int64("update_id", update.ID),
			slog.String("url", update.URL),
			slog.Int("chats", len(update.ChatIDs)),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return
	}

	RecordSuccess(channel.Name(), duration)
	slog.Info("Link update delivered",
		slog.String("channel", channel.Name()),
		slog.Int64("update_id", update.ID),
		slog.String("url", update.URL),
		slog.Duration("send_duration", duration))
}

func (s *service) recordResult(channelName string, ok bool) {
	health := s.channelHealth[channelName]
	health.mu.Lock()
	defer health.mu.Unlock()

	if ok {
		health.consecutiveFailures = 0
		return
	}

	health.consecutiveFailures++
	health.lastFailure = s.now()
	if health.consecutiveFailures == degradedThreshold {
		slog.Error("Notification channel degraded",
			slog.String("channel", channelName),
			slog.Int("consecutive_failures", health.consecutiveFailures))
		RecordChannelDegraded(channelName)
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		health := s.channelHealth[ch.Name()]
		health.mu.Lock()
		status := ChannelHealthStatus{
			Name:                ch.Name(),
			Enabled:             ch.IsEnabled(),
			ConsecutiveFailures: health.consecutiveFailures,
			Degraded:            health.consecutiveFailures >= degradedThreshold,
		}
		if !health.lastFailure.IsZero() {
			last := health.lastFailure
			status.LastFailure = &last
		}
		health.mu.Unlock()

		statuses = append(statuses, status)
	}
	return statuses
}
