package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdb-resale/resale-cli/internal/model"
)

func TestBuildFeatureCollection(t *testing.T) {
	houses := []model.LocatedEntity{
		model.NewLocatedEntity("H1", 1.30, 103.80),
		model.NewLocatedEntity("H2", 1.31, 103.81),
	}
	amenities := []model.LocatedEntity{model.NewLocatedEntity("MRT", 1.32, 103.82)}
	results := []model.MatchResult{
		{House: "H1", Amenity: "MRT", DistanceKM: 2.5},
		{House: "H2", Amenity: "MRT", DistanceKM: 1.2},
		{House: "UNKNOWN", Amenity: "MRT", DistanceKM: 9},
	}

	fc, err := BuildFeatureCollection(results, houses, amenities)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "H1", f.ID)
	assert.Equal(t, "MRT", f.Properties["amenity"])
	assert.Equal(t, []float64{103.80, 1.30}, []float64(f.Geometry.FlatCoords()[0:2]))
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.geojson")
	err := WriteGeoJSON(path,
		[]model.MatchResult{{House: "H1", Amenity: "MRT", DistanceKM: 2.5}},
		[]model.LocatedEntity{model.NewLocatedEntity("H1", 1.30, 103.80)},
		[]model.LocatedEntity{model.NewLocatedEntity("MRT", 1.32, 103.82)},
	)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1)
	assert.Equal(t, "LineString", doc.Features[0].Geometry.Type)
	assert.Equal(t, [][]float64{{103.80, 1.30}, {103.82, 1.32}}, doc.Features[0].Geometry.Coordinates)
	assert.InDelta(t, 2.5, doc.Features[0].Properties["distance_km"], 1e-9)
}
