package main

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/address"
	"github.com/hdb-resale/resale-cli/internal/config"
	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/resilience"
	"github.com/hdb-resale/resale-cli/internal/store"
	"github.com/hdb-resale/resale-cli/pkg/geocode"
)

// initStore opens and migrates the SQLite store.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	path := cfg.Store.Path
	if path == "" {
		path = "resale.db"
	}
	var opts []store.Option
	if cfg.Geocode.CacheTTLDays > 0 {
		opts = append(opts, store.WithCacheTTL(time.Duration(cfg.Geocode.CacheTTLDays)*24*time.Hour))
	}
	st, err := store.NewSQLite(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initGeocoder builds the maps.co → Radar → OneMap fallback chain from config.
// cache may be nil.
func initGeocoder(gc config.GeocodeConfig, cache geocode.Cache) *geocode.FallbackClient {
	retry := resilience.FromRetryConfig(gc.Retry.MaxAttempts, gc.Retry.InitialBackoffMs, gc.Retry.MaxBackoffMs)
	providerOpts := func(baseURL string) []geocode.ProviderOption {
		return []geocode.ProviderOption{
			geocode.WithBaseURL(baseURL),
			geocode.WithRateLimit(gc.RateLimitRPS),
			geocode.WithRetry(retry),
		}
	}

	bounds := gc.Bounds
	if bounds.IsZero() {
		bounds = address.SingaporeBounds
	}

	opts := []geocode.FallbackOption{
		geocode.WithAccept(func(lat, lon float64) bool {
			return bounds.Contains(model.Coordinate{Latitude: lat, Longitude: lon})
		}),
		geocode.WithBatchConcurrency(gc.Concurrency),
	}
	if gc.UseOneMap {
		opts = append(opts, geocode.WithExtraProviders(
			geocode.NewOneMapProvider(gc.OneMapToken, providerOpts(gc.OneMapURL)...),
		))
	}
	if cache != nil && gc.CacheEnabled {
		opts = append(opts, geocode.WithCache(cache))
	}

	return geocode.NewFallbackClient(
		geocode.NewMapsCoProvider(gc.MapsCoKey, providerOpts(gc.MapsCoURL)...),
		geocode.NewRadarProvider(gc.RadarKey, providerOpts(gc.RadarURL)...),
		opts...,
	)
}

// finishRun records the outcome of a run without masking runErr.
func finishRun(st store.Store, runID string, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.FinishRun(ctx, runID, runErr); err != nil {
		zap.L().Warn("could not record run outcome", zap.String("run_id", runID), zap.Error(err))
	}
}

func toGeocoded(results []geocode.Result) []model.GeocodedAddress {
	out := make([]model.GeocodedAddress, len(results))
	for i, r := range results {
		out[i] = model.GeocodedAddress{Address: r.Query, Source: r.Source, Label: r.Label}
		if r.Matched {
			out[i].Coordinate = model.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
		} else {
			out[i].Coordinate = model.Coordinate{Latitude: math.NaN(), Longitude: math.NaN()}
		}
	}
	return out
}

func requireFlag(name, value string) error {
	if value == "" {
		return eris.Errorf("--%s is required", name)
	}
	return nil
}
