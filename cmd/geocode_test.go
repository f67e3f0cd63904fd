package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdb-resale/resale-cli/internal/address"
	"github.com/hdb-resale/resale-cli/internal/fetcher"
	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/store"
)

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"A", " B ", "", "A", "C", "B"})
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestResaleAddresses(t *testing.T) {
	norm, err := address.NewNormalizer(nil)
	require.NoError(t, err)

	got := resaleAddresses(norm, []model.ResaleRecord{
		{Block: "406", StreetName: "ANG MO KIO AVE 10"},
		{Block: "406", StreetName: "ang mo kio  ave 10"},
		{Block: "10", StreetName: "TELOK BLANGAH CRES"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "406 ANG MO KIO AVENUE 10", got[0])
	assert.Equal(t, "10 TELOK BLANGAH CRESCENT", got[1])
}

// fakeMapsCo answers every query with a point inside Singapore except
// queries for "NOWHERE", which get no hits.
func fakeMapsCo(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "NOWHERE" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"lat": "1.3521", "lon": "103.8198", "display_name": r.URL.Query().Get("q") + ", Singapore"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunGeocode(t *testing.T) {
	c := setTestConfig(t)
	var calls atomic.Int32
	srv := fakeMapsCo(t, &calls)
	c.Geocode.MapsCoKey = "test-key"
	c.Geocode.MapsCoURL = srv.URL

	out := filepath.Join(t.TempDir(), "geocoded.csv")
	queries := []string{"1 BEACH RD", "2 BEACH RD", "NOWHERE"}

	require.NoError(t, runGeocode(context.Background(), "addresses.csv", queries, out))

	rows := readCSVFile(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1 BEACH RD", "1.3521", "103.8198", "mapsco"}, rows[1])
	assert.Equal(t, "2 BEACH RD", rows[2][0])

	misses := readCSVFile(t, filepath.Join(filepath.Dir(out), "geocoded_misses.csv"))
	assert.Equal(t, [][]string{{"address"}, {"NOWHERE"}}, misses)

	st, err := store.NewSQLite(c.Store.Path)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(context.Background(), store.RunFilter{Kind: model.RunKindGeocode})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 3, runs[0].Processed)

	// Second run is served from the cache.
	before := calls.Load()
	require.NoError(t, runGeocode(context.Background(), "addresses.csv", queries, out))
	assert.Equal(t, before, calls.Load())
}

func TestRunGeocode_OutputFeedsNearest(t *testing.T) {
	c := setTestConfig(t)
	var calls atomic.Int32
	srv := fakeMapsCo(t, &calls)
	c.Geocode.MapsCoKey = "test-key"
	c.Geocode.MapsCoURL = srv.URL

	dir := t.TempDir()
	geocoded := filepath.Join(dir, "houses_geocoded.csv")
	require.NoError(t, runGeocode(context.Background(), "houses.csv", []string{"1 BEACH RD", "NOWHERE"}, geocoded))

	houses, err := fetcher.ReadLocated(context.Background(), geocoded, fetcher.DefaultLocatedColumns, true)
	require.NoError(t, err)
	require.Len(t, houses, 1)

	amenities := []model.LocatedEntity{model.NewLocatedEntity("RAFFLES PLACE MRT", 1.2840, 103.8515)}
	out := filepath.Join(dir, "nearest.csv")
	require.NoError(t, runNearest(context.Background(), geocoded, houses, amenities, out, ""))

	rows := readCSVFile(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "1 BEACH RD", rows[1][0])
	assert.Equal(t, "RAFFLES PLACE MRT", rows[1][1])
}

func TestMissesFile(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a_geocoded_misses.csv"), missesFile(filepath.Join("out", "a_geocoded.xlsx")))
}
