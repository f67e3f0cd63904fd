package geocode

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AcceptFunc decides whether a matched coordinate is plausible.
type AcceptFunc func(lat, lon float64) bool

// FallbackOption configures a FallbackClient.
type FallbackOption func(*FallbackClient)

// WithAccept rejects matches outside the area of interest.
func WithAccept(fn AcceptFunc) FallbackOption {
	return func(c *FallbackClient) {
		if fn != nil {
			c.accept = fn
		}
	}
}

// WithExtraProviders appends providers tried, in order, after the
// primary/secondary chain has failed.
func WithExtraProviders(ps ...Provider) FallbackOption {
	return func(c *FallbackClient) {
		c.extra = append(c.extra, ps...)
	}
}

// WithCache enables result caching.
func WithCache(cache Cache) FallbackOption {
	return func(c *FallbackClient) {
		c.cache = cache
	}
}

// WithBatchConcurrency sets the max parallel lookups in BatchGeocode.
func WithBatchConcurrency(n int) FallbackOption {
	return func(c *FallbackClient) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// WithBatchProgress is called after each query completes in BatchGeocode.
// It may be called from multiple goroutines.
func WithBatchProgress(fn func(done, total int)) FallbackOption {
	return func(c *FallbackClient) {
		c.onProgress = fn
	}
}

// FallbackClient resolves an address in this order:
//
//  1. the primary provider, accepted if the match passes the AcceptFunc;
//  2. the secondary provider; if it returns a label, the primary is retried
//     with that label;
//  3. the secondary provider's own coordinates;
//  4. any extra providers, in order.
//
// Provider errors count as misses. Exhausting every step is not an error:
// the result is returned with Matched=false.
type FallbackClient struct {
	primary          Provider
	secondary        Provider
	extra            []Provider
	accept           AcceptFunc
	cache            Cache
	batchConcurrency int
	onProgress       func(done, total int)
}

// NewFallbackClient creates a FallbackClient. Either provider may be nil.
func NewFallbackClient(primary, secondary Provider, opts ...FallbackOption) *FallbackClient {
	c := &FallbackClient{
		primary:          primary,
		secondary:        secondary,
		accept:           func(_, _ float64) bool { return true },
		batchConcurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client.
func (c *FallbackClient) Geocode(ctx context.Context, query string) (*Result, error) {
	key := CacheKey(query)
	if c.cache != nil {
		cached, ok, err := c.cache.GetGeocode(ctx, key)
		if err != nil {
			zap.L().Debug("geocode: cache lookup failed", zap.String("query", query), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	result, err := c.resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	result.Query = query

	if c.cache != nil {
		if err := c.cache.PutGeocode(ctx, key, result); err != nil {
			zap.L().Warn("geocode: cache store failed", zap.String("query", query), zap.Error(err))
		}
	}
	return result, nil
}

func (c *FallbackClient) resolve(ctx context.Context, query string) (*Result, error) {
	log := zap.L().With(zap.String("query", query))

	if r := c.try(ctx, c.primary, query); c.ok(r) {
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode: cancelled")
	}

	if c.primary != nil {
		log.Debug("geocode: primary missed, falling back", zap.String("secondary", name(c.secondary)))
	}

	second := c.try(ctx, c.secondary, query)
	if second != nil && second.Matched && second.Label != "" {
		if r := c.try(ctx, c.primary, second.Label); c.ok(r) {
			r.Label = second.Label
			return r, nil
		}
	}
	if c.ok(second) {
		return second, nil
	}

	for _, p := range c.extra {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "geocode: cancelled")
		}
		if r := c.try(ctx, p, query); c.ok(r) {
			return r, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode: cancelled")
	}
	log.Info("geocode: could not resolve address inside bounds")
	return &Result{Source: "fallback"}, nil
}

// try calls p if it is usable and logs, rather than returns, its errors.
func (c *FallbackClient) try(ctx context.Context, p Provider, query string) *Result {
	if p == nil || !p.Available() || query == "" {
		return nil
	}
	r, err := p.Geocode(ctx, query)
	if err != nil {
		zap.L().Debug("geocode: provider error",
			zap.String("provider", p.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	return r
}

func (c *FallbackClient) ok(r *Result) bool {
	return r != nil && r.Matched && c.accept(r.Latitude, r.Longitude)
}

func name(p Provider) string {
	if p == nil {
		return ""
	}
	return p.Name()
}

// BatchGeocode implements Client. Results are in query order; individual
// failures produce unmatched results. Only cancellation fails the batch.
func (c *FallbackClient) BatchGeocode(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([]Result, len(queries))
	var done atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchConcurrency)

	for i, q := range queries {
		g.Go(func() error {
			r, err := c.Geocode(gCtx, q)
			if err != nil {
				if gCtx.Err() != nil {
					return err
				}
				r = &Result{Query: q, Source: "fallback"}
			}
			results[i] = *r
			if c.onProgress != nil {
				c.onProgress(int(done.Add(1)), len(queries))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "geocode: batch")
	}
	return results, nil
}
