package distance

import (
	"context"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/geo"
)

// StraightLineProvider estimates legs from great-circle distance and the
// travel mode's average speed. It never calls out and never fails on valid
// coordinates, so it backs planning when no routing service is configured.
type StraightLineProvider struct{}

func (StraightLineProvider) GetDistance(
	ctx context.Context,
	mode domain.TravelMode,
	origin, destination domain.Point,
) (domain.Leg, error) {
	if err := ctx.Err(); err != nil {
		return domain.Leg{}, err
	}
	if err := origin.Validate(); err != nil {
		return domain.Leg{}, err
	}
	if err := destination.Validate(); err != nil {
		return domain.Leg{}, err
	}
	return geo.EstimateLeg(origin, destination, mode), nil
}

func (p StraightLineProvider) GetDistances(
	ctx context.Context,
	mode domain.TravelMode,
	origin domain.Point,
	destinations []domain.Point,
) (map[string]domain.Leg, error) {
	out := make(map[string]domain.Leg, len(destinations))
	for _, d := range destinations {
		leg, err := p.GetDistance(ctx, mode, origin, d)
		if err != nil {
			return nil, err
		}
		out[d.Key()] = leg
	}
	return out, nil
}
