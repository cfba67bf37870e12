/*
Package geo contains the coordinate type and the great-circle distance calculation
used to rank connected users by proximity.
*/
package geo

import (
	"math"

	"geodispatch/internal/pkg/errs"
)

// EarthRadiusKm is the mean Earth radius used by the spherical approximation.
const EarthRadiusKm = 6371.0

// Coordinate represents a geographical point in floating-point degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies within the valid degree ranges.
// Non-finite values are rejected so they never enter the registry.
func (c Coordinate) Validate() *errs.CustomError {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return errs.NewError(errs.ErrInvalidCoordinates)
	}

	if c.Latitude < -90 || c.Latitude > 90 {
		return errs.NewError(errs.ErrInvalidCoordinates)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return errs.NewError(errs.ErrInvalidCoordinates)
	}

	return nil
}

// Distance computes the great-circle distance between two coordinates in kilometers
// using the haversine formula on a spherical Earth. Pure and deterministic;
// non-finite inputs propagate NaN.
func Distance(a, b Coordinate) float64 {
	lat1Rad := a.Latitude * math.Pi / 180
	lat2Rad := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}
