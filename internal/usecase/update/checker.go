// Package update implements the polling core of the scrapper: routing links
// to platform adapters, tracking per-link watermarks and turning new events
// into outbound link updates.
package update

import (
	"context"
	"net/url"
	"strings"
	"time"

	"link-tracker/internal/domain/entity"
)

// Route binds a host fragment to the adapter that serves it.
type Route struct {
	HostFragment string
	Platform     entity.Platform
	Adapter      Adapter
}

// DefaultRoutes returns the GitHub and StackOverflow routes.
func DefaultRoutes(github, stackoverflow Adapter) []Route {
	return []Route{
		{HostFragment: "github.com", Platform: entity.PlatformGitHub, Adapter: github},
		{HostFragment: "stackoverflow.com", Platform: entity.PlatformStackOverflow, Adapter: stackoverflow},
	}
}

// Checker dispatches a link to the first route whose host fragment is
// contained in the link host. Links matching no route have no updates.
type Checker struct {
	routes []Route
}

// NewChecker creates a Checker trying routes in order.
func NewChecker(routes ...Route) *Checker {
	return &Checker{routes: routes}
}

// Check returns the events created after lastCheck for rawURL.
func (c *Checker) Check(ctx context.Context, rawURL string, lastCheck *time.Time) ([]entity.UpdateEvent, error) {
	route, ok := c.route(rawURL)
	if !ok || route.Adapter == nil {
		return nil, nil
	}
	return route.Adapter.GetNewUpdates(ctx, rawURL, lastCheck)
}

// Platform reports which platform rawURL is routed to, or "" when none.
func (c *Checker) Platform(rawURL string) entity.Platform {
	route, ok := c.route(rawURL)
	if !ok {
		return ""
	}
	return route.Platform
}

func (c *Checker) route(rawURL string) (Route, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Route{}, false
	}
	host := strings.ToLower(u.Host)
	for _, r := range c.routes {
		if strings.Contains(host, strings.ToLower(r.HostFragment)) {
			return r, true
		}
	}
	return Route{}, false
}
