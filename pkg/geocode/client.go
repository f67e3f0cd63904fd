// Package geocode resolves Singapore street addresses to coordinates using
// geocode.maps.co, Radar and OneMap behind a fixed fallback chain.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hdb-resale/resale-cli/internal/resilience"
)

// Client geocodes single-line addresses.
type Client interface {
	Geocode(ctx context.Context, query string) (*Result, error)
	BatchGeocode(ctx context.Context, queries []string) ([]Result, error)
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Available() bool
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for one query. Label is the provider's
// cleaned-up address, when it returns one.
type Result struct {
	Query     string  `json:"query"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`
	Label     string  `json:"label,omitempty"`
	Matched   bool    `json:"matched"`
}

// DefaultRateLimit keeps each provider just under one request per second.
const DefaultRateLimit = 1 / 1.1

// ProviderOption configures an HTTP-backed provider.
type ProviderOption func(*httpProvider)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(p *httpProvider) {
		if hc != nil {
			p.httpClient = hc
		}
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) ProviderOption {
	return func(p *httpProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithRateLimit sets the provider's requests-per-second budget. A value <= 0
// disables limiting.
func WithRateLimit(rps float64) ProviderOption {
	return func(p *httpProvider) {
		if rps <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) ProviderOption {
	return func(p *httpProvider) {
		p.retry = cfg
	}
}

// httpProvider holds what every HTTP geocoder shares.
type httpProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

func newHTTPProvider(name, baseURL string, opts []ProviderOption) httpProvider {
	p := httpProvider{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	if p.retry.OnRetry == nil {
		p.retry.OnRetry = resilience.RetryLogger(name, "geocode")
	}
	return p
}

// getJSON performs a rate-limited GET and decodes the JSON body into out,
// retrying transient failures.
func (p *httpProvider) getJSON(ctx context.Context, reqURL string, header http.Header, out any) error {
	return resilience.Do(ctx, p.retry, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return eris.Wrapf(err, "geocode: %s rate limit", p.name)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrapf(err, "geocode: %s build request", p.name)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return eris.Wrapf(err, "geocode: %s request", p.name)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return resilience.StatusError("geocode: "+p.name, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrapf(err, "geocode: %s parse response", p.name)
		}
		return nil
	})
}
