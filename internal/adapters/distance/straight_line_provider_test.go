package distance

import (
	"context"
	"errors"
	"sales-route-service/internal/domain"
	"testing"
)

func TestStraightLineProviderMatrix(t *testing.T) {
	origin := domain.Point{Lat: 48.8566, Lon: 2.3522}
	dests := []domain.Point{
		{Lat: 48.8606, Lon: 2.3376},
		{Lat: 48.8530, Lon: 2.3499},
	}

	var p StraightLineProvider
	got, err := p.GetDistances(context.Background(), domain.ModeCar, origin, dests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d legs, want 2", len(got))
	}
	for _, d := range dests {
		leg, ok := got[d.Key()]
		if !ok {
			t.Fatalf("missing leg for %s", d.Key())
		}
		if leg.DistanceMeters <= 0 || leg.DurationSeconds <= 0 {
			t.Fatalf("leg %+v, want positive values", leg)
		}
	}
}

func TestStraightLineProviderInvalidPoint(t *testing.T) {
	var p StraightLineProvider
	_, err := p.GetDistance(context.Background(), domain.ModeCar, domain.Point{Lat: 100}, domain.Point{})
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
}
