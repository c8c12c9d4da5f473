package update

import (
	"strings"
	"time"

	"link-tracker/internal/domain/entity"
)

// Describe renders the human readable text sent to subscribers for ev.
func Describe(ev entity.UpdateEvent) string {
	var b strings.Builder
	b.WriteString("Platform: " + string(ev.Platform) + "\n")
	b.WriteString("Type: " + string(ev.Type) + "\n")
	b.WriteString("Title: " + ev.Title + "\n")
	b.WriteString("User: " + ev.Username + "\n")
	b.WriteString("Created: " + ev.CreatedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("Preview: " + ev.Preview)
	return b.String()
}
