package distance

import (
	"context"
	"fmt"
	"sales-route-service/internal/domain"
	"sync/atomic"
)

type MockPair struct {
	From, To domain.Point
	Meters   int
	Seconds  int
}

// MockDistanceProvider serves fixed legs keyed by point pair. The travel
// mode is ignored.
type MockDistanceProvider struct {
	m     map[string]domain.Leg
	calls atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]domain.Leg, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = domain.Leg{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) GetDistance(
	ctx context.Context,
	mode domain.TravelMode,
	origin, destination domain.Point,
) (domain.Leg, error) {
	p.calls.Add(1)
	if origin == destination {
		return domain.Leg{}, nil
	}

	r, ok := p.m[origin.Key()+"|"+destination.Key()]
	if !ok {
		return domain.Leg{}, fmt.Errorf("missing pair %s -> %s", origin.Key(), destination.Key())
	}

	return r, nil
}

// Calls returns the number of GetDistance invocations so far.
func (p *MockDistanceProvider) Calls() int { return int(p.calls.Load()) }
