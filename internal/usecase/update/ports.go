package update

import (
	"context"
	"time"

	"link-tracker/internal/domain/entity"
)

// Adapter fetches the update events of one platform.
//
// A nil lastCheck means the link has never been polled; adapters return no
// events in that case so that existing history is not replayed.
type Adapter interface {
	GetNewUpdates(ctx context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error)
}

// UpdateChecker routes a link to the adapter responsible for it.
type UpdateChecker interface {
	Check(ctx context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error)
	Platform(rawURL string) entity.Platform
}

// LinkSource provides the snapshot of tracked links for a poll cycle.
// repository.LinkRepository satisfies it.
type LinkSource interface {
	ListTracked(ctx context.Context) ([]entity.TrackedLink, error)
}

// Sender delivers a link update. Delivery failures are handled by the
// implementation and never reported back.
type Sender interface {
	Send(ctx context.Context, update *entity.LinkUpdate)
}

// Observer receives the outcome of every poll cycle.
type Observer interface {
	RecordCycle(stats *CycleStats, err error)
}

type nopObserver struct{}

func (nopObserver) RecordCycle(*CycleStats, error) {}
