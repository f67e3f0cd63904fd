// Package sink writes match results, geocoded addresses and GeoJSON exports to disk.
package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// ResultsHeader is the header row of a results CSV.
var ResultsHeader = []string{"House", "Nearest Amenity", "Distance (km)"}

// GeocodedHeader is the header row of a geocoded address table.
var GeocodedHeader = []string{"address", "LATITUDE", "LONGITUDE", "source"}

// MissesHeader is the header row of an unresolved-address table.
var MissesHeader = []string{"address"}

// WriteResultsCSV writes results to path. The file is written to a temp file in
// the same directory and renamed, so readers never see a partial checkpoint.
func WriteResultsCSV(path string, results []model.MatchResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.House,
			r.Amenity,
			strconv.FormatFloat(r.DistanceKM, 'f', -1, 64),
		})
	}
	return writeCSVAtomic(path, ResultsHeader, rows)
}

// WriteGeocodedCSV writes geocoded addresses; unresolved coordinates are left blank.
func WriteGeocodedCSV(path string, rows []model.GeocodedAddress) error {
	out := make([][]string, 0, len(rows))
	for _, g := range rows {
		out = append(out, geocodedRow(g))
	}
	return writeCSVAtomic(path, GeocodedHeader, out)
}

// WriteMissesCSV writes the addresses no provider could resolve, one per row.
func WriteMissesCSV(path string, addresses []string) error {
	rows := make([][]string, 0, len(addresses))
	for _, a := range addresses {
		rows = append(rows, []string{a})
	}
	return writeCSVAtomic(path, MissesHeader, rows)
}

func geocodedRow(g model.GeocodedAddress) []string {
	lat, lon := "", ""
	if g.Valid() {
		lat = strconv.FormatFloat(g.Latitude, 'f', -1, 64)
		lon = strconv.FormatFloat(g.Longitude, 'f', -1, 64)
	}
	return []string{g.Address, lat, lon, g.Source}
}

func writeCSVAtomic(path string, header []string, rows [][]string) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	})
}

func writeAtomic(path string, fill func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "sink: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "sink: create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := fill(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "sink: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "sink: close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "sink: rename %s", path)
	}
	return nil
}
