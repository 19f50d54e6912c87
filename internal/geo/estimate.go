package geo

import (
	"math"
	"sales-route-service/internal/domain"
)

// RoadDetourFactor inflates straight-line distance to approximate road
// distance when no routing engine result is available.
const RoadDetourFactor = 1.3

// EstimateLeg returns a straight-line travel estimate for mode.
// Inputs are assumed valid.
func EstimateLeg(a, b domain.Point, mode domain.TravelMode) domain.Leg {
	meters := haversine(a, b) * RoadDetourFactor
	speedMps := mode.AverageSpeedKmh() * 1000 / 3600

	return domain.Leg{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(meters / speedMps)),
	}
}
