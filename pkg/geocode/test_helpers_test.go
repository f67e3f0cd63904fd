package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hdb-resale/resale-cli/internal/resilience"
)

// testOptions points a provider at srv with no rate limit and fast retries.
func testOptions(srv *httptest.Server) []ProviderOption {
	return []ProviderOption{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0),
		WithRetry(resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		}),
	}
}

// jsonServer serves body to every request and records each request.
func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var mu sync.Mutex
	var reqs []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, r.Clone(context.Background()))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

// mockProvider returns canned results per query.
type mockProvider struct {
	name      string
	available bool
	results   map[string]*Result
	err       error

	mu    sync.Mutex
	calls []string
}

func newMockProvider(name string, results map[string]*Result) *mockProvider {
	return &mockProvider{name: name, available: true, results: results}
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }

func (m *mockProvider) Geocode(_ context.Context, query string) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.results[query]; ok {
		cp := *r
		cp.Source = m.name
		return &cp, nil
	}
	return &Result{Query: query, Source: m.name}, nil
}

func (m *mockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// memCache is an in-memory Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]Result
	puts int
}

func newMemCache() *memCache { return &memCache{data: map[string]Result{}} }

func (c *memCache) GetGeocode(_ context.Context, key string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memCache) PutGeocode(_ context.Context, key string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = *r
	c.puts++
	return nil
}
