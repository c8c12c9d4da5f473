package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/observability/logging"
	"link-tracker/internal/resilience/circuitbreaker"
)

// maxGitHubPages bounds the pages read from the end of one listing per check.
const maxGitHubPages = 50

// GitHubConfig configures the GitHub REST API adapter.
type GitHubConfig struct {
	// BaseURL is the API root, e.g. https://api.github.com
	BaseURL string

	// Token is an optional personal access token sent as a bearer token
	Token string
}

// DefaultGitHubConfig returns the public GitHub API configuration.
func DefaultGitHubConfig() GitHubConfig {
	return GitHubConfig{BaseURL: "https://api.github.com"}
}

// GitHubAdapter reports pull requests and issues opened in a repository.
type GitHubAdapter struct {
	api *apiClient
}

// NewGitHubAdapter creates a GitHubAdapter using client for all requests.
func NewGitHubAdapter(client *http.Client, cfg GitHubConfig) *GitHubAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubConfig().BaseURL
	}
	token := cfg.Token
	decorate := func(req *http.Request, _ url.Values) {
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return &GitHubAdapter{
		api: newAPIClient(entity.PlatformGitHub, cfg.BaseURL, client, circuitbreaker.GitHubAPIConfig(), decorate),
	}
}

// ParseGitHubURL extracts owner and repository from a github.com URL.
// ok is false when rawURL does not point to a repository.
func ParseGitHubURL(rawURL string) (owner, repo string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return "", "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

type githubUser struct {
	Login string `json:"login"`
}

type githubItem struct {
	Title       string           `json:"title"`
	Body        *string          `json:"body"`
	User        githubUser       `json:"user"`
	CreatedAt   time.Time        `json:"created_at"`
	PullRequest *json.RawMessage `json:"pull_request,omitempty"`
}

// GetNewUpdates returns pull requests and issues created strictly after
// lastCheck, oldest first. A nil lastCheck yields no events.
func (g *GitHubAdapter) GetNewUpdates(ctx context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error) {
	owner, repo, ok := ParseGitHubURL(rawURL)
	if !ok || lastCheck == nil {
		return nil, nil
	}

	since := lastCheck.UTC()
	query := func() url.Values {
		return url.Values{
			"state":     {"all"},
			"sort":      {"created"},
			"direction": {"asc"},
			"since":     {since.Format(time.RFC3339)},
			"per_page":  {"100"},
		}
	}
	base := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))

	var events []entity.UpdateEvent

	pulls, found, err := g.listCreatedAfter(ctx, "pulls", base+"/pulls", query(), since)
	if err != nil {
		return nil, err
	}
	if found {
		events = appendGitHubEvents(events, pulls, entity.UpdateTypePR, since)
	}

	issues, found, err := g.listCreatedAfter(ctx, "issues", base+"/issues", query(), since)
	if err != nil {
		return nil, err
	}
	if found {
		// the issues endpoint also lists pull requests
		onlyIssues := issues[:0]
		for _, item := range issues {
			if item.PullRequest == nil {
				onlyIssues = append(onlyIssues, item)
			}
		}
		events = appendGitHubEvents(events, onlyIssues, entity.UpdateTypeIssue, since)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// listCreatedAfter reads an oldest-first listing. The pulls endpoint ignores
// since, so new items sit on the last pages of a long listing. When the first
// page links to a last page, reading walks back from there along rel="prev"
// until a page starts at or before since or page 2 has been read.
//
// Any degraded page degrades the whole listing.
func (g *GitHubAdapter) listCreatedAfter(ctx context.Context, endpoint, path string, query url.Values, since time.Time) ([]githubItem, bool, error) {
	var first []githubItem
	links, found, err := g.api.fetchPage(ctx, endpoint, g.api.pageURL(path, query), &first)
	if err != nil || !found {
		return nil, found, err
	}
	target, ok := links["last"]
	if !ok {
		return first, true, nil
	}

	var newestFirst [][]githubItem
	for pages := 1; ; pages++ {
		var items []githubItem
		links, found, err := g.api.fetchPage(ctx, endpoint, target, &items)
		if err != nil || !found {
			return nil, found, err
		}
		newestFirst = append(newestFirst, items)

		if len(items) == 0 || !items[0].CreatedAt.After(since) {
			break
		}
		prev, ok := links["prev"]
		if !ok || isFirstPage(prev) {
			break
		}
		if pages == maxGitHubPages {
			logging.FromContext(ctx).Warn("github listing truncated",
				slog.String("endpoint", endpoint),
				slog.Int("pages", pages))
			break
		}
		target = prev
	}

	items := first
	for i := len(newestFirst) - 1; i >= 0; i-- {
		items = append(items, newestFirst[i]...)
	}
	return items, true, nil
}

// isFirstPage reports whether a GitHub page link points at page 1.
func isFirstPage(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	page := u.Query().Get("page")
	return page == "" || page == "1"
}

func appendGitHubEvents(events []entity.UpdateEvent, items []githubItem, kind entity.UpdateType, since time.Time) []entity.UpdateEvent {
	for _, item := range items {
		if !item.CreatedAt.After(since) {
			continue
		}
		body := ""
		if item.Body != nil {
			body = *item.Body
		}
		events = append(events, entity.UpdateEvent{
			Platform:  entity.PlatformGitHub,
			Type:      kind,
			Title:     item.Title,
			Username:  item.User.Login,
			CreatedAt: item.CreatedAt.UTC(),
			Preview:   entity.NewPreview(body),
		})
	}
	return events
}
