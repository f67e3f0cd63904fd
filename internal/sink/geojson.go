package sink

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// BuildFeatureCollection draws a LineString from each house to its nearest
// amenity. Results whose endpoints are unknown or invalid are left out.
func BuildFeatureCollection(results []model.MatchResult, houses, amenities []model.LocatedEntity) (*geojson.FeatureCollection, error) {
	houseAt := indexByID(houses)
	amenityAt := indexByID(amenities)

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(results))}
	for _, r := range results {
		h, ok := houseAt[r.House]
		if !ok || !h.Valid() {
			continue
		}
		a, ok := amenityAt[r.Amenity]
		if !ok || !a.Valid() {
			continue
		}

		line, err := geom.NewLineString(geom.XY).SetCoords([]geom.Coord{
			{h.Longitude, h.Latitude},
			{a.Longitude, a.Latitude},
		})
		if err != nil {
			return nil, eris.Wrapf(err, "sink: line for %s", r.House)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.House,
			Geometry: line,
			Properties: map[string]interface{}{
				"house":       r.House,
				"amenity":     r.Amenity,
				"distance_km": r.DistanceKM,
			},
		})
	}
	return fc, nil
}

// WriteGeoJSON writes BuildFeatureCollection's output to path.
func WriteGeoJSON(path string, results []model.MatchResult, houses, amenities []model.LocatedEntity) error {
	fc, err := BuildFeatureCollection(results, houses, amenities)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "sink: marshal geojson")
	}
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// Later entities win on duplicate IDs, as in model.ResultSet.
func indexByID(entities []model.LocatedEntity) map[string]model.LocatedEntity {
	m := make(map[string]model.LocatedEntity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return m
}
