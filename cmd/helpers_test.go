package main

import (
	"path/filepath"
	"testing"

	"github.com/hdb-resale/resale-cli/internal/address"
	"github.com/hdb-resale/resale-cli/internal/config"
)

// setTestConfig installs a config pointing at a temp SQLite file and restores
// the previous one when the test ends.
func setTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")},
		Geocode: config.GeocodeConfig{
			Concurrency:  1,
			SaveEvery:    2,
			CacheEnabled: true,
			Retry:        config.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, MaxBackoffMs: 1},
			Bounds:       address.SingaporeBounds,
		},
		Match: config.MatchConfig{CheckpointEvery: 2, Concurrency: 2},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}
