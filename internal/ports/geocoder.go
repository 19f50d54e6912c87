package ports

import (
	"context"
	"sales-route-service/internal/domain"
)

// GeocodeResult is the per-address outcome of a batch geocode.
// Exactly one of Location or Err is set.
type GeocodeResult struct {
	Address  string
	Location *domain.Point
	Err      error
}

// Geocoder resolves display addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Point, error)
	// GeocodeMany never fails the whole batch because of one address.
	GeocodeMany(ctx context.Context, addresses []string) []GeocodeResult
}
