package db

import (
	"database/sql"
	"fmt"
)

// schema mirrors the relational layout shared with the bot API.
// The scrapper reads links only; the remaining tables are created here
// so that a fresh database is usable by either service.
var schema = []struct {
	name string
	stmt string
}{
	{"chats", `
CREATE TABLE IF NOT EXISTS chats (
    chat_id    BIGINT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"links", `
CREATE TABLE IF NOT EXISTS links (
    id         BIGSERIAL PRIMARY KEY,
    chat_id    BIGINT NOT NULL REFERENCES chats(chat_id) ON DELETE CASCADE,
    url        TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (chat_id, url)
)`},
	{"tags", `
CREATE TABLE IF NOT EXISTS tags (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`},
	{"filters", `
CREATE TABLE IF NOT EXISTS filters (
    id    BIGSERIAL PRIMARY KEY,
    value TEXT NOT NULL UNIQUE
)`},
	{"link_tags", `
CREATE TABLE IF NOT EXISTS link_tags (
    link_id BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    tag_id  BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (link_id, tag_id)
)`},
	{"link_filters", `
CREATE TABLE IF NOT EXISTS link_filters (
    link_id   BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
    filter_id BIGINT NOT NULL REFERENCES filters(id) ON DELETE CASCADE,
    PRIMARY KEY (link_id, filter_id)
)`},
}

var indexes = []string{
	// ListTracked orders by url
	`CREATE INDEX IF NOT EXISTS idx_links_url ON links(url)`,
}

// MigrateUp creates the schema if it does not exist yet.
func MigrateUp(db *sql.DB) error {
	for _, table := range schema {
		if _, err := db.Exec(table.stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
