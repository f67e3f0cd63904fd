package nearest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdb-resale/resale-cli/internal/model"
)

func TestDistance_Identity(t *testing.T) {
	t.Parallel()

	for _, c := range []model.Coordinate{
		{Latitude: 1.3521, Longitude: 103.8198},
		{Latitude: 0, Longitude: 0},
		{Latitude: -89.9, Longitude: 179.9},
		{Latitude: 90, Longitude: 0},
	} {
		d, err := Distance(c, c)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	}
}

func TestDistance_Symmetry(t *testing.T) {
	t.Parallel()

	pairs := [][2]model.Coordinate{
		{{Latitude: 1.3521, Longitude: 103.8198}, {Latitude: 1.36, Longitude: 103.82}},
		{{Latitude: 51.5, Longitude: -0.12}, {Latitude: 40.7, Longitude: -74.0}},
		{{Latitude: -41.32, Longitude: 174.81}, {Latitude: 40.96, Longitude: -5.50}},
		{{Latitude: 0, Longitude: 0}, {Latitude: 0.5, Longitude: 179.7}},
	}
	for _, p := range pairs {
		ab, err := Distance(p[0], p[1])
		require.NoError(t, err)
		ba, err := Distance(p[1], p[0])
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		a, b  model.Coordinate
		want  float64
		delta float64
	}{
		{
			name:  "one degree of latitude at the equator",
			a:     model.Coordinate{Latitude: 0, Longitude: 0},
			b:     model.Coordinate{Latitude: 1, Longitude: 0},
			want:  110.574,
			delta: 0.01,
		},
		{
			name:  "singapore short hop",
			a:     model.Coordinate{Latitude: 1.3521, Longitude: 103.8198},
			b:     model.Coordinate{Latitude: 1.3600, Longitude: 103.8200},
			want:  0.874,
			delta: 0.01,
		},
		{
			name:  "wellington to salamanca",
			a:     model.Coordinate{Latitude: -41.32, Longitude: 174.81},
			b:     model.Coordinate{Latitude: 40.96, Longitude: -5.50},
			want:  19959.679,
			delta: 0.01,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, d, tt.delta)
		})
	}
}

func TestDistance_NearAntipodal(t *testing.T) {
	t.Parallel()

	d, err := Distance(
		model.Coordinate{Latitude: 0, Longitude: 0},
		model.Coordinate{Latitude: 0.5, Longitude: 179.5},
	)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(d))
	assert.Greater(t, d, 19000.0)
	assert.Less(t, d, 20004.0)
}

func TestDistance_NonFinite(t *testing.T) {
	t.Parallel()

	_, err := Distance(
		model.Coordinate{Latitude: math.NaN(), Longitude: 0},
		model.Coordinate{Latitude: 1, Longitude: 1},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Distance(
		model.Coordinate{Latitude: 1, Longitude: 1},
		model.Coordinate{Latitude: 1, Longitude: math.Inf(-1)},
	)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
