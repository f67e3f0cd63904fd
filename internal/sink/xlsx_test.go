package sink

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/hdb-resale/resale-cli/internal/model"
)

func TestWriteGeocodedXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.xlsx")
	err := WriteGeocodedXLSX(path, []model.GeocodedAddress{
		{Address: "A", Coordinate: model.Coordinate{Latitude: 1.3, Longitude: 103.8}, Source: "radar"},
		{Address: "B", Coordinate: model.Coordinate{Latitude: math.NaN(), Longitude: math.NaN()}, Source: "fallback"},
	})
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)

	assert.Equal(t, "address", rows[0].Cells[0].String())
	assert.Equal(t, "A", rows[1].Cells[0].String())
	lat, err := rows[1].Cells[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.3, lat, 1e-9)
	assert.Equal(t, "", rows[2].Cells[1].String())
	assert.Equal(t, "fallback", rows[2].Cells[3].String())
}
