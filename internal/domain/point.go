package domain

import (
	"fmt"
	"math"
)

// Immutable geographic point (WGS-84, decimal degrees).
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate for values outside
// [-90,90] / [-180,180] or non-finite values.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return nil
}

// Return coordinates as [lon, lat] for external API compatibility.
func (p Point) CoordsToList() []float64 { return []float64{p.Lon, p.Lat} }

// Key is a stable cache key with ~10cm precision.
func (p Point) Key() string { return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon) }
