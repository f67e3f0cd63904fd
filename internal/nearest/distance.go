package nearest

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tidwall/geodesic"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// DistanceFunc returns the distance in kilometers between two coordinates.
type DistanceFunc func(a, b model.Coordinate) (float64, error)

// Distance returns the geodesic distance in kilometers between a and b on the
// WGS-84 ellipsoid. Identical coordinates yield exactly 0.
func Distance(a, b model.Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, eris.Wrapf(ErrInvalidInput, "nearest: non-finite coordinate (%v, %v) -> (%v, %v)",
			a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	if a == b {
		return 0, nil
	}

	var meters float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &meters, nil, nil)
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return 0, eris.Wrapf(ErrComputation, "nearest: geodesic (%v, %v) -> (%v, %v)",
			a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	return meters / 1000, nil
}
