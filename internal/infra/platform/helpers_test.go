package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fastRetry keeps retried requests from slowing down the tests.
func fastRetry(api *apiClient) {
	api.retryConfig.InitialDelay = time.Millisecond
	api.retryConfig.MaxDelay = time.Millisecond
	api.retryConfig.JitterFraction = 0
}

// routes serves fixed bodies keyed by request path; unknown paths return 404.
type routes map[string]func(w http.ResponseWriter, r *http.Request)

func newPlatformServer(t *testing.T, handlers routes) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func jsonBody(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
