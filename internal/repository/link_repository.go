package repository

import (
	"context"

	"link-tracker/internal/domain/entity"
)

// LinkRepository is the read side of link storage used by the update scheduler.
type LinkRepository interface {
	// ListTracked returns one entry per distinct URL with every subscribed chat id,
	// ordered by URL and then chat id.
	ListTracked(ctx context.Context) ([]entity.TrackedLink, error)
}
