package ports

import (
	"context"
	"sales-route-service/internal/domain"
)

// DistanceCache stores origin -> destination legs per travel mode.
// Keys are Point.Key() strings.
type DistanceCache interface {
	GetMany(ctx context.Context, mode domain.TravelMode, origin string, destinations []string) (map[string]domain.Leg, error)
	PutMany(ctx context.Context, mode domain.TravelMode, origin string, results map[string]domain.Leg) error
}

// GeocodeCache stores normalized address -> coordinate mappings.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Point, error)
	PutMany(ctx context.Context, results map[string]domain.Point) error
}
