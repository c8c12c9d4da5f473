// Package entity defines the core domain types of the link tracker: tracked links,
// the normalized update events produced by platform adapters, and the outbound
// notifications delivered to the bot.
package entity

import (
	"time"
	"unicode/utf8"
)

// Platform identifies an external service that tracked links point to.
type Platform string

const (
	PlatformGitHub        Platform = "GitHub"
	PlatformStackOverflow Platform = "StackOverflow"
)

// UpdateType is the kind of activity an UpdateEvent describes.
type UpdateType string

const (
	UpdateTypePR      UpdateType = "PR"
	UpdateTypeIssue   UpdateType = "Issue"
	UpdateTypeAnswer  UpdateType = "Answer"
	UpdateTypeComment UpdateType = "Comment"
)

// PreviewMaxLength is the maximum number of characters kept in UpdateEvent.Preview.
const PreviewMaxLength = 200

// UpdateEvent is a single piece of new activity detected on a tracked link.
// CreatedAt is always in UTC.
type UpdateEvent struct {
	Platform  Platform
	Type      UpdateType
	Title     string
	Username  string
	CreatedAt time.Time
	Preview   string
}

// NewPreview returns body cut to at most PreviewMaxLength characters.
// Truncation counts runes, not bytes, and does not look for word boundaries.
func NewPreview(body string) string {
	if utf8.RuneCountInString(body) <= PreviewMaxLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:PreviewMaxLength])
}

// LatestCreatedAt returns the maximum CreatedAt across events.
// The second return value is false when events is empty.
func LatestCreatedAt(events []UpdateEvent) (time.Time, bool) {
	if len(events) == 0 {
		return time.Time{}, false
	}
	latest := events[0].CreatedAt
	for _, ev := range events[1:] {
		if ev.CreatedAt.After(latest) {
			latest = ev.CreatedAt
		}
	}
	return latest, true
}
