package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/pkg/geocode"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db       *sql.DB
	cacheTTL time.Duration
	now      func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithCacheTTL expires geocode cache entries older than ttl. Zero keeps them forever.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *SQLiteStore) { s.cacheTTL = ttl }
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	input       TEXT NOT NULL DEFAULT '',
	total       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS match_results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	house       TEXT NOT NULL,
	position    INTEGER NOT NULL,
	amenity     TEXT NOT NULL,
	distance_km REAL NOT NULL,
	PRIMARY KEY (run_id, house)
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	lat        REAL,
	lon        REAL,
	source     TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	matched    INTEGER NOT NULL,
	cached_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind_status ON runs(kind, status);
CREATE INDEX IF NOT EXISTS idx_match_results_position ON match_results(run_id, position);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind, input string, total int) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, input, total, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(kind), string(model.RunStatusRunning), input, total, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		Input:     input,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, processed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET processed = ?, updated_at = ? WHERE id = ?`,
		processed, s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// FinishRun marks the run complete, or failed with runErr's message.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := model.RunStatusComplete, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}
	now := s.now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		string(status), msg, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, kind, status, input, total, processed, error, created_at, updated_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, ErrNotFound) {
		return nil, eris.Wrapf(err, "run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// --- Match checkpoints ---

// SaveMatches upserts a results snapshot. Results keep the position they had
// in the slice, so GetMatches returns them in the same order.
func (s *SQLiteStore) SaveMatches(ctx context.Context, runID string, results []model.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save matches")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_results (run_id, house, position, amenity, distance_km) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, house) DO UPDATE SET
			position = excluded.position,
			amenity = excluded.amenity,
			distance_km = excluded.distance_km`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save matches")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, runID, r.House, i, r.Amenity, r.DistanceKM); err != nil {
			return eris.Wrapf(err, "sqlite: save match for %s", r.House)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save matches")
}

func (s *SQLiteStore) GetMatches(ctx context.Context, runID string) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT house, amenity, distance_km FROM match_results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get matches %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MatchResult
	for rows.Next() {
		var r model.MatchResult
		if err := rows.Scan(&r.House, &r.Amenity, &r.DistanceKM); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get matches iterate")
}

// --- Geocode cache ---

func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT query, lat, lon, source, label, matched, cached_at FROM geocode_cache WHERE query_hash = ?`,
		key,
	)

	var (
		r        geocode.Result
		lat, lon sql.NullFloat64
		cachedAt int64
	)
	err := row.Scan(&r.Query, &lat, &lon, &r.Source, &r.Label, &r.Matched, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get geocode")
	}
	if s.expired(cachedAt) {
		return nil, false, nil
	}
	r.Latitude, r.Longitude = lat.Float64, lon.Float64
	return &r, true, nil
}

func (s *SQLiteStore) PutGeocode(ctx context.Context, key string, r *geocode.Result) error {
	if r == nil {
		return eris.New("sqlite: put geocode: nil result")
	}
	var lat, lon sql.NullFloat64
	if r.Matched {
		lat = sql.NullFloat64{Float64: r.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: r.Longitude, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (query_hash, query, lat, lon, source, label, matched, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (query_hash) DO UPDATE SET
			query = excluded.query, lat = excluded.lat, lon = excluded.lon, source = excluded.source,
			label = excluded.label, matched = excluded.matched, cached_at = excluded.cached_at`,
		key, r.Query, lat, lon, r.Source, r.Label, r.Matched, s.now().UnixNano(),
	)
	return eris.Wrap(err, "sqlite: put geocode")
}

func (s *SQLiteStore) DeleteExpiredGeocodes(ctx context.Context) (int, error) {
	if s.cacheTTL <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.cacheTTL).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE cached_at <= ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired geocodes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) expired(cachedAt int64) bool {
	if s.cacheTTL <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(0, cachedAt)) >= s.cacheTTL
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r        model.Run
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Kind, &r.Status, &r.Input, &r.Total, &r.Processed, &r.Error,
		&r.CreatedAt, &r.UpdatedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

var _ Store = (*SQLiteStore)(nil)
