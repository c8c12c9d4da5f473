// Package platform implements the GitHub and StackOverflow adapters that turn
// a tracked link into the list of update events created since the last check.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"link-tracker/internal/domain/entity"
	"link-tracker/internal/observability/logging"
	"link-tracker/internal/observability/metrics"
	"link-tracker/internal/resilience/circuitbreaker"
	"link-tracker/internal/resilience/retry"
)

const (
	maxBodySize = 10 * 1024 * 1024 // 10MB
	userAgent   = "LinkTrackerScrapper/1.0"
)

// apiClient performs GET requests against one platform API through a circuit
// breaker and the retry policy.
type apiClient struct {
	platform       entity.Platform
	baseURL        string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	decorate       func(req *http.Request, query url.Values)
}

func newAPIClient(platform entity.Platform, baseURL string, client *http.Client, cbConfig circuitbreaker.Config, decorate func(*http.Request, url.Values)) *apiClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	cbConfig.IsSuccessful = breakerSuccess
	return &apiClient{
		platform:       platform,
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		circuitBreaker: circuitbreaker.New(cbConfig),
		retryConfig:    retry.PlatformAPIConfig(cbConfig.Name),
		decorate:       decorate,
	}
}

// breakerSuccess keeps client errors such as a deleted repository (404) from
// tripping the breaker. Rate limiting and server errors still count.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 &&
			httpErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// fetch loads one sub-resource into out.
//
// A false result with a nil error means the sub-request degraded to
// "no data this cycle": the upstream answered with a non-2xx status, the
// transport failed or the breaker is open. A malformed body or a canceled
// context is returned as an error.
func (c *apiClient) fetch(ctx context.Context, endpoint, path string, query url.Values, out interface{}) (bool, error) {
	_, found, err := c.fetchPage(ctx, endpoint, c.pageURL(path, query), out)
	return found, err
}

// fetchPage is fetch for an absolute URL. It also returns the pagination
// links of the response keyed by rel.
func (c *apiClient) fetchPage(ctx context.Context, endpoint, target string, out interface{}) (map[string]string, bool, error) {
	page, err := c.get(ctx, endpoint, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, fmt.Errorf("%s %s: %w", c.platform, endpoint, ctxErr)
		}
		logging.FromContext(ctx).Warn("platform request failed, no data this cycle",
			slog.String("platform", string(c.platform)),
			slog.String("endpoint", endpoint),
			slog.String("path", pathOf(target)),
			slog.String("circuit_state", c.circuitBreaker.State().String()),
			slog.Any("error", err))
		metrics.RecordPlatformDegraded(string(c.platform), endpoint)
		return nil, false, nil
	}

	if err := json.Unmarshal(page.body, out); err != nil {
		return nil, false, fmt.Errorf("decode %s %s response: %w", c.platform, endpoint, err)
	}
	return page.links, true, nil
}

// pageURL builds the absolute URL for path and query.
func (c *apiClient) pageURL(path string, query url.Values) string {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

type apiPage struct {
	body  []byte
	links map[string]string
}

// get runs doGet with retry and circuit breaker protection.
func (c *apiClient) get(ctx context.Context, endpoint, target string) (*apiPage, error) {
	var page *apiPage

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGet(ctx, endpoint, target)
		})
		if err != nil {
			return err
		}
		page = cbResult.(*apiPage)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return page, nil
}

// doGet performs a single request without retry or circuit breaker.
func (c *apiClient) doGet(ctx context.Context, endpoint, target string) (*apiPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	query := req.URL.Query()
	if c.decorate != nil {
		c.decorate(req, query)
	}
	req.URL.RawQuery = query.Encode()

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordPlatformRequest(string(c.platform), endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	metrics.RecordPlatformRequest(string(c.platform), endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	return &apiPage{body: body, links: parseLinks(req.URL, resp.Header.Values("Link"))}, nil
}

// pathOf keeps query parameters such as API keys out of logs.
func pathOf(target string) string {
	if u, err := url.Parse(target); err == nil {
		return u.Path
	}
	return ""
}

// parseLinks parses RFC 8288 Link headers. Targets are resolved against
// the request URL and dropped unless they stay on the request's host.
func parseLinks(base *url.URL, headers []string) map[string]string {
	links := make(map[string]string)
	for _, header := range headers {
		for _, part := range strings.Split(header, ",") {
			segments := strings.Split(part, ";")
			ref := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(ref, "<") || !strings.HasSuffix(ref, ">") {
				continue
			}
			target, err := base.Parse(strings.Trim(ref, "<>"))
			if err != nil || target.Host != base.Host {
				continue
			}
			for _, param := range segments[1:] {
				key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(key, "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(value, `"`)) {
					links[strings.ToLower(rel)] = target.String()
				}
			}
		}
	}
	return links
}
