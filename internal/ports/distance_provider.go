package ports

import (
	"context"
	"sales-route-service/internal/domain"
)

// Contract for retrieving travel distance and duration between locations.
type DistanceProvider interface {
	// Return travel distance and estimated duration between two points.
	GetDistance(ctx context.Context, mode domain.TravelMode, origin, destination domain.Point) (domain.Leg, error)
}

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return legs from one origin to many destinations, keyed by Point.Key().
	GetDistances(ctx context.Context, mode domain.TravelMode, origin domain.Point, destinations []domain.Point) (map[string]domain.Leg, error)
}
