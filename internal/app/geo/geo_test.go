package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSymmetry(t *testing.T) {
	pairs := []struct {
		a, b Coordinate
	}{
		{Coordinate{0, 0}, Coordinate{10, 10}},
		{Coordinate{52.52, 13.405}, Coordinate{48.8566, 2.3522}},
		{Coordinate{-33.8688, 151.2093}, Coordinate{35.6762, 139.6503}},
		{Coordinate{89.9, -179.9}, Coordinate{-89.9, 179.9}},
	}

	for _, pair := range pairs {
		assert.InDelta(t, Distance(pair.a, pair.b), Distance(pair.b, pair.a), 1e-9)
	}
}

func TestDistanceIdentityIsZero(t *testing.T) {
	points := []Coordinate{
		{0, 0},
		{45.0, -120.5},
		{-90, 0},
		{90, 180},
	}

	for _, p := range points {
		assert.InDelta(t, 0, Distance(p, p), 1e-9)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Coordinate
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "origin to 10,10",
			a:         Coordinate{0, 0},
			b:         Coordinate{10, 10},
			wantKm:    1568.5,
			tolerance: 1.0,
		},
		{
			name:      "origin to tiny offset",
			a:         Coordinate{0, 0},
			b:         Coordinate{0, 0.001},
			wantKm:    0.111,
			tolerance: 0.01,
		},
		{
			name:      "quarter meridian",
			a:         Coordinate{0, 0},
			b:         Coordinate{90, 0},
			wantKm:    10007.5,
			tolerance: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantKm, Distance(tt.a, tt.b), tt.tolerance)
		})
	}
}

func TestDistancePropagatesNaN(t *testing.T) {
	d := Distance(Coordinate{math.NaN(), 0}, Coordinate{0, 0})
	assert.True(t, math.IsNaN(d))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"origin", Coordinate{0, 0}, true},
		{"boundary north-east", Coordinate{90, 180}, true},
		{"boundary south-west", Coordinate{-90, -180}, true},
		{"latitude too high", Coordinate{90.1, 0}, false},
		{"latitude too low", Coordinate{-90.1, 0}, false},
		{"longitude too high", Coordinate{0, 180.1}, false},
		{"longitude too low", Coordinate{0, -180.1}, false},
		{"NaN latitude", Coordinate{math.NaN(), 0}, false},
		{"Inf longitude", Coordinate{0, math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customErr := tt.coord.Validate()
			if tt.valid {
				require.Nil(t, customErr)
			} else {
				require.NotNil(t, customErr)
			}
		})
	}
}
