package cache

import (
	"context"
	"errors"
	"sales-route-service/internal/domain"
	"testing"
	"time"
)

type stubGeocodeCache struct {
	points map[string]domain.Point
	gets   int
	err    error
}

func (s *stubGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Point, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]domain.Point{}
	for _, a := range addresses {
		if p, ok := s.points[a]; ok {
			out[a] = p
		}
	}
	return out, nil
}

func (s *stubGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Point) error {
	for a, p := range results {
		s.points[a] = p
	}
	return nil
}

func TestMemoryGeocodeCacheFallsThroughAndBackfills(t *testing.T) {
	l2 := &stubGeocodeCache{points: map[string]domain.Point{
		"1 Main St": {Lat: 40, Lon: -75},
	}}
	c := NewMemoryGeocodeCache(time.Minute, l2)
	ctx := context.Background()

	got, err := c.GetMany(ctx, []string{"1 Main St", "2 Side St"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got["1 Main St"].Lat != 40 {
		t.Fatalf("got %v, want the L2 hit", got)
	}

	// Second read is served from memory.
	if _, err := c.GetMany(ctx, []string{"1 Main St"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l2.gets != 1 {
		t.Fatalf("L2 reads = %d, want 1", l2.gets)
	}
}

func TestMemoryGeocodeCachePutWritesThrough(t *testing.T) {
	l2 := &stubGeocodeCache{points: map[string]domain.Point{}}
	c := NewMemoryGeocodeCache(time.Minute, l2)
	ctx := context.Background()

	p := domain.Point{Lat: 1, Lon: 2}
	if err := c.PutMany(ctx, map[string]domain.Point{"x": p}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l2.points["x"] != p {
		t.Fatalf("L2 = %v, want write-through", l2.points)
	}

	got, _ := c.GetMany(ctx, []string{"x"})
	if got["x"] != p || l2.gets != 0 {
		t.Fatalf("got %v with %d L2 reads, want memory hit", got, l2.gets)
	}
}

func TestMemoryGeocodeCacheL2Failure(t *testing.T) {
	l2 := &stubGeocodeCache{points: map[string]domain.Point{}, err: errors.New("db down")}
	c := NewMemoryGeocodeCache(time.Minute, nil)
	c.next = l2
	ctx := context.Background()

	_ = c.PutMany(ctx, map[string]domain.Point{"x": {Lat: 1, Lon: 1}})

	got, err := c.GetMany(ctx, []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v, want only the memory hit", got)
	}
}
