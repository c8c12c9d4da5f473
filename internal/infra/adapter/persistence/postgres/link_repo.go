package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/observability/metrics"
	"link-tracker/internal/repository"
)

// Queryer is satisfied by *sql.DB and by circuitbreaker.DBCircuitBreaker.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type LinkRepo struct{ db Queryer }

func NewLinkRepo(db Queryer) repository.LinkRepository {
	return &LinkRepo{db: db}
}

// ListTracked groups subscriptions by URL. Rows arrive sorted, so each URL
// forms one contiguous run.
func (repo *LinkRepo) ListTracked(ctx context.Context) ([]entity.TrackedLink, error) {
	const query = `
SELECT url, chat_id
FROM links
ORDER BY url ASC, chat_id ASC`
	defer func(start time.Time) {
		metrics.RecordDBQuery("list_tracked", time.Since(start))
	}(time.Now())

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListTracked: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []entity.TrackedLink
	for rows.Next() {
		var (
			url    string
			chatID int64
		)
		if err := rows.Scan(&url, &chatID); err != nil {
			return nil, fmt.Errorf("ListTracked: Scan: %w", err)
		}
		n := len(links)
		if n > 0 && links[n-1].URL == url {
			if ids := links[n-1].ChatIDs; ids[len(ids)-1] != chatID {
				links[n-1].ChatIDs = append(ids, chatID)
			}
			continue
		}
		links = append(links, entity.TrackedLink{URL: url, ChatIDs: []int64{chatID}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTracked: rows: %w", err)
	}
	return links, nil
}
