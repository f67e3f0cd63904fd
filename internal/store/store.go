// Package store persists runs, match checkpoints and the geocode cache in SQLite.
package store

import (
	"context"
	"errors"

	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/pkg/geocode"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for geocoding and matching runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, input string, total int) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, processed int) error
	FinishRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Match checkpoints
	SaveMatches(ctx context.Context, runID string, results []model.MatchResult) error
	GetMatches(ctx context.Context, runID string) ([]model.MatchResult, error)

	// Geocode cache
	geocode.Cache
	DeleteExpiredGeocodes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
