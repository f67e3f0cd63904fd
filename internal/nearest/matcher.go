// Package nearest matches every house to its closest amenity by geodesic distance.
package nearest

import (
	"context"
	"errors"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// DefaultCheckpointInterval is the number of houses processed between checkpoints.
const DefaultCheckpointInterval = 1000

var (
	// ErrInvalidInput reports an empty amenity table or a non-finite coordinate.
	ErrInvalidInput = errors.New("nearest: invalid input")

	// ErrComputation reports a distance that could not be computed.
	ErrComputation = errors.New("nearest: distance computation failed")
)

// Progress is delivered to a CheckpointFunc after each batch of houses.
type Progress struct {
	Done    int
	Total   int
	Final   bool
	Results *model.ResultSet // independent snapshot, safe to retain
}

// CheckpointFunc receives matcher progress. A non-nil error aborts the run.
type CheckpointFunc func(ctx context.Context, p Progress) error

// Option configures a Matcher.
type Option func(*Matcher)

// WithCheckpoint invokes fn after every `every` houses and once at completion.
func WithCheckpoint(every int, fn CheckpointFunc) Option {
	return func(m *Matcher) {
		if every > 0 {
			m.every = every
		}
		m.onCheckpoint = fn
	}
}

// WithConcurrency sets the number of workers sharing each batch of houses.
func WithConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithSkipInvalid logs and skips houses with non-finite coordinates instead
// of failing the run. Skipped houses are absent from the ResultSet.
func WithSkipInvalid() Option {
	return func(m *Matcher) {
		m.skipInvalid = true
	}
}

// WithDistanceFunc replaces the geodesic distance function.
func WithDistanceFunc(fn DistanceFunc) Option {
	return func(m *Matcher) {
		if fn != nil {
			m.distance = fn
		}
	}
}

// Matcher performs a brute-force nearest-amenity search.
type Matcher struct {
	every        int
	onCheckpoint CheckpointFunc
	concurrency  int
	skipInvalid  bool
	distance     DistanceFunc
}

// New creates a Matcher with the given options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		every:       DefaultCheckpointInterval,
		concurrency: 1,
		distance:    Distance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindNearest is shorthand for New(opts...).FindNearest.
func FindNearest(ctx context.Context, houses, amenities []model.LocatedEntity, opts ...Option) (*model.ResultSet, error) {
	return New(opts...).FindNearest(ctx, houses, amenities)
}

// FindNearest returns, for every house, the closest amenity and its distance
// in kilometers. Ties go to the amenity appearing first in the table. The
// result is the same for any concurrency setting.
func (m *Matcher) FindNearest(ctx context.Context, houses, amenities []model.LocatedEntity) (*model.ResultSet, error) {
	if len(amenities) == 0 {
		return nil, eris.Wrap(ErrInvalidInput, "nearest: amenity table is empty")
	}
	for i, a := range amenities {
		if !a.Valid() {
			return nil, eris.Wrapf(ErrInvalidInput, "nearest: amenity %q (row %d) has non-finite coordinate", a.ID, i)
		}
	}

	results := model.NewResultSet(len(houses))
	if len(houses) == 0 {
		return results, nil
	}

	log := zap.L().With(zap.String("component", "nearest"))
	log.Debug("matching started",
		zap.Int("houses", len(houses)),
		zap.Int("amenities", len(amenities)),
		zap.Int("concurrency", m.concurrency),
	)

	for start := 0; start < len(houses); start += m.every {
		end := min(start+m.every, len(houses))

		batch, err := m.matchBatch(ctx, houses[start:end], amenities)
		if err != nil {
			return nil, err
		}
		for _, s := range batch {
			if s.ok {
				results.Put(s.result)
			}
		}

		if m.onCheckpoint != nil {
			p := Progress{
				Done:    end,
				Total:   len(houses),
				Final:   end == len(houses),
				Results: results.Snapshot(),
			}
			if err := m.onCheckpoint(ctx, p); err != nil {
				return nil, eris.Wrapf(err, "nearest: checkpoint at %d/%d", end, len(houses))
			}
		}
	}

	log.Debug("matching complete", zap.Int("results", results.Len()))
	return results, nil
}

type slot struct {
	result model.MatchResult
	ok     bool
}

// matchBatch splits houses into disjoint slices, one per worker. Each worker
// writes only its own slots.
func (m *Matcher) matchBatch(ctx context.Context, houses, amenities []model.LocatedEntity) ([]slot, error) {
	out := make([]slot, len(houses))

	workers := min(m.concurrency, len(houses))
	if workers <= 1 {
		return out, m.matchRange(ctx, houses, amenities, out)
	}

	chunk := (len(houses) + workers - 1) / workers
	g, gCtx := errgroup.WithContext(ctx)
	for s := 0; s < len(houses); s += chunk {
		e := min(s+chunk, len(houses))
		g.Go(func() error {
			return m.matchRange(gCtx, houses[s:e], amenities, out[s:e])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Matcher) matchRange(ctx context.Context, houses, amenities []model.LocatedEntity, out []slot) error {
	for i, h := range houses {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "nearest: cancelled")
		}

		r, err := m.nearest(h, amenities)
		if err != nil {
			if m.skipInvalid && errors.Is(err, ErrInvalidInput) {
				zap.L().Warn("nearest: skipping house with invalid coordinate",
					zap.String("house", h.ID),
					zap.Float64("latitude", h.Latitude),
					zap.Float64("longitude", h.Longitude),
				)
				continue
			}
			return err
		}
		out[i] = slot{result: r, ok: true}
	}
	return nil
}

// nearest scans every amenity in table order. A candidate replaces the
// current best only when strictly closer.
func (m *Matcher) nearest(h model.LocatedEntity, amenities []model.LocatedEntity) (model.MatchResult, error) {
	if !h.Valid() {
		return model.MatchResult{}, eris.Wrapf(ErrInvalidInput, "nearest: house %q has non-finite coordinate", h.ID)
	}

	best := -1
	bestKM := math.Inf(1)
	for j, a := range amenities {
		d, err := m.distance(h.Coordinate, a.Coordinate)
		if err != nil {
			return model.MatchResult{}, eris.Wrapf(err, "nearest: house %q to amenity %q", h.ID, a.ID)
		}
		if d < bestKM {
			best = j
			bestKM = d
		}
	}
	if best < 0 {
		return model.MatchResult{}, eris.Wrapf(ErrComputation, "nearest: no finite distance for house %q", h.ID)
	}

	return model.MatchResult{
		House:      h.ID,
		Amenity:    amenities[best].ID,
		DistanceKM: bestKM,
	}, nil
}
