package entity

import "strings"

// TrackedLink is a distinct URL together with every chat subscribed to it.
// It is a read-only snapshot taken at the start of a poll cycle.
type TrackedLink struct {
	URL     string
	ChatIDs []int64
}

// LinkUpdate is the notification payload delivered to the bot service.
type LinkUpdate struct {
	ID          int64   `json:"id"`
	URL         string  `json:"url"`
	ChatIDs     []int64 `json:"tgChatIds"`
	Description string  `json:"description"`
}

// Validate checks that the update can be delivered.
func (u *LinkUpdate) Validate() error {
	if u.ID <= 0 {
		return &ValidationError{Field: "id", Message: "id must be positive"}
	}
	if strings.TrimSpace(u.URL) == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if len(u.ChatIDs) == 0 {
		return &ValidationError{Field: "tgChatIds", Message: "at least one chat id is required"}
	}
	return nil
}
