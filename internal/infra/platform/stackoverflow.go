package platform

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/resilience/circuitbreaker"
)

const stackOverflowSite = "stackoverflow"

var questionIDPattern = regexp.MustCompile(`^[0-9]+$`)

// StackOverflowConfig configures the StackExchange API adapter.
type StackOverflowConfig struct {
	// BaseURL is the API root, e.g. https://api.stackexchange.com/2.3
	BaseURL string

	// Key is an optional application key raising the request quota
	Key string
}

// DefaultStackOverflowConfig returns the public StackExchange API configuration.
func DefaultStackOverflowConfig() StackOverflowConfig {
	return StackOverflowConfig{BaseURL: "https://api.stackexchange.com/2.3"}
}

// StackOverflowAdapter reports answers and comments posted on a question.
type StackOverflowAdapter struct {
	api *apiClient
}

// NewStackOverflowAdapter creates a StackOverflowAdapter using client for all requests.
func NewStackOverflowAdapter(client *http.Client, cfg StackOverflowConfig) *StackOverflowAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultStackOverflowConfig().BaseURL
	}
	key := cfg.Key
	decorate := func(_ *http.Request, query url.Values) {
		if key != "" {
			query.Set("key", key)
		}
	}
	return &StackOverflowAdapter{
		api: newAPIClient(entity.PlatformStackOverflow, cfg.BaseURL, client, circuitbreaker.StackOverflowAPIConfig(), decorate),
	}
}

// ParseStackOverflowURL extracts the question id from a
// stackoverflow.com/questions/{id}/... URL.
func ParseStackOverflowURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if !strings.Contains(strings.ToLower(u.Hostname()), "stackoverflow.com") {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "questions" || !questionIDPattern.MatchString(parts[1]) {
		return "", false
	}
	return parts[1], true
}

type stackOwner struct {
	DisplayName string `json:"display_name"`
}

type stackQuestion struct {
	QuestionID int64  `json:"question_id"`
	Title      string `json:"title"`
}

type stackPost struct {
	Owner        stackOwner `json:"owner"`
	CreationDate int64      `json:"creation_date"`
	Body         string     `json:"body"`
}

type stackResponse[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// GetNewUpdates returns answers and comments created strictly after
// lastCheck, oldest first. A nil lastCheck yields no events.
func (s *StackOverflowAdapter) GetNewUpdates(ctx context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error) {
	questionID, ok := ParseStackOverflowURL(rawURL)
	if !ok || lastCheck == nil {
		return nil, nil
	}
	since := lastCheck.UTC()
	base := "/questions/" + questionID

	title := "Question " + questionID
	var question stackResponse[stackQuestion]
	found, err := s.api.fetch(ctx, "question", base, url.Values{
		"site":   {stackOverflowSite},
		"filter": {"default"},
	}, &question)
	if err != nil {
		return nil, err
	}
	if found && len(question.Items) > 0 && question.Items[0].Title != "" {
		title = html.UnescapeString(question.Items[0].Title)
	}

	postQuery := func() url.Values {
		return url.Values{
			"site":     {stackOverflowSite},
			"sort":     {"creation"},
			"order":    {"asc"},
			"filter":   {"withbody"},
			"fromdate": {strconv.FormatInt(since.Unix(), 10)},
			"pagesize": {"100"},
		}
	}

	var events []entity.UpdateEvent

	var answers stackResponse[stackPost]
	found, err = s.api.fetch(ctx, "answers", base+"/answers", postQuery(), &answers)
	if err != nil {
		return nil, err
	}
	if found {
		events = appendStackEvents(events, answers.Items, entity.UpdateTypeAnswer, title, since)
	}

	var comments stackResponse[stackPost]
	found, err = s.api.fetch(ctx, "comments", base+"/comments", postQuery(), &comments)
	if err != nil {
		return nil, err
	}
	if found {
		events = appendStackEvents(events, comments.Items, entity.UpdateTypeComment, title, since)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func appendStackEvents(events []entity.UpdateEvent, posts []stackPost, kind entity.UpdateType, title string, since time.Time) []entity.UpdateEvent {
	for _, post := range posts {
		created := time.Unix(post.CreationDate, 0).UTC()
		if !created.After(since) {
			continue
		}
		events = append(events, entity.UpdateEvent{
			Platform:  entity.PlatformStackOverflow,
			Type:      kind,
			Title:     title,
			Username:  html.UnescapeString(post.Owner.DisplayName),
			CreatedAt: created,
			Preview:   entity.NewPreview(htmlToText(post.Body)),
		})
	}
	return events
}

