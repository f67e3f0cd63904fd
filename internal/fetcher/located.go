package fetcher

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// LocatedColumns names the header columns holding the identifier and the
// coordinates. Empty fields fall back to address / LATITUDE / LONGITUDE.
type LocatedColumns struct {
	ID  string `mapstructure:"id" yaml:"id"`
	Lat string `mapstructure:"lat" yaml:"lat"`
	Lon string `mapstructure:"lon" yaml:"lon"`
}

// DefaultLocatedColumns matches the geocoder's own output files.
var DefaultLocatedColumns = LocatedColumns{ID: "address", Lat: "LATITUDE", Lon: "LONGITUDE"}

func (c LocatedColumns) withDefaults() LocatedColumns {
	if c.ID == "" {
		c.ID = DefaultLocatedColumns.ID
	}
	if c.Lat == "" {
		c.Lat = DefaultLocatedColumns.Lat
	}
	if c.Lon == "" {
		c.Lon = DefaultLocatedColumns.Lon
	}
	return c
}

// ReadLocated loads named points from a CSV or XLSX file. Blank coordinates
// become NaN so the matcher decides whether to reject or skip them; anything
// else that fails to parse is an error. With dedupe set, only the first row
// for each ID is kept.
func ReadLocated(ctx context.Context, path string, cols LocatedColumns, dedupe bool) ([]model.LocatedEntity, error) {
	cols = cols.withDefaults()

	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}

	idIdx := columnIndex(header, cols.ID)
	latIdx := columnIndex(header, cols.Lat)
	lonIdx := columnIndex(header, cols.Lon)
	switch {
	case idIdx < 0:
		return nil, eris.Errorf("fetcher: %s has no %q column", path, cols.ID)
	case latIdx < 0:
		return nil, eris.Errorf("fetcher: %s has no %q column", path, cols.Lat)
	case lonIdx < 0:
		return nil, eris.Errorf("fetcher: %s has no %q column", path, cols.Lon)
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]model.LocatedEntity, 0, len(rows))
	dupes := 0
	for i, row := range rows {
		id := cell(row, idIdx)
		if id == "" {
			continue
		}
		if dedupe {
			if _, ok := seen[id]; ok {
				dupes++
				continue
			}
			seen[id] = struct{}{}
		}

		// Header is line 1.
		line := i + 2
		lat, err := parseCoord(cell(row, latIdx))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s line %d: %s", path, line, cols.Lat)
		}
		lon, err := parseCoord(cell(row, lonIdx))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s line %d: %s", path, line, cols.Lon)
		}
		out = append(out, model.NewLocatedEntity(id, lat, lon))
	}

	if dupes > 0 {
		zap.L().Debug("fetcher: dropped duplicate rows",
			zap.String("path", path),
			zap.Int("duplicates", dupes),
		)
	}
	return out, nil
}

// ReadColumn returns the non-blank values of the first matching column.
func ReadColumn(ctx context.Context, path string, names ...string) ([]string, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(header, names...)
	if idx < 0 {
		return nil, eris.Errorf("fetcher: %s has none of the columns %s", path, strings.Join(names, ", "))
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := cell(row, idx); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func parseCoord(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse coordinate %q", s)
	}
	return v, nil
}
