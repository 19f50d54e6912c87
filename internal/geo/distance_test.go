package geo

import (
	"errors"
	"math"
	"sales-route-service/internal/domain"
	"testing"
)

var (
	paris = domain.Point{Lat: 48.8566, Lon: 2.3522}
	lyon  = domain.Point{Lat: 45.7640, Lon: 4.8357}
)

func TestDistanceParisLyon(t *testing.T) {
	d, err := Distance(paris, lyon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Published great-circle distance is ~392 km.
	if d < 388_000 || d > 396_000 {
		t.Fatalf("distance = %.0f m, want ~392 km", d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	points := []domain.Point{
		paris,
		lyon,
		{Lat: 0, Lon: 0},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9, Lon: -179.9},
		{Lat: -45, Lon: 179.5},
	}

	for _, a := range points {
		for _, b := range points {
			ab, err := Distance(a, b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ba, err := Distance(b, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ab != ba {
				t.Errorf("Distance(%v,%v) = %v, Distance(%v,%v) = %v", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestDistanceInvalidCoordinate(t *testing.T) {
	cases := []domain.Point{
		{Lat: 90.5, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 180.1},
		{Lat: 0, Lon: -181},
		{Lat: math.NaN(), Lon: 0},
	}

	for _, p := range cases {
		if _, err := Distance(p, paris); !errors.Is(err, domain.ErrInvalidCoordinate) {
			t.Errorf("Distance(%v) err = %v, want ErrInvalidCoordinate", p, err)
		}
	}
}

func TestDistanceToSegmentClamping(t *testing.T) {
	a := domain.Point{Lat: 0, Lon: 0}
	b := domain.Point{Lat: 0, Lon: 1}

	behindA := domain.Point{Lat: 0.05, Lon: -0.5}
	got, err := DistanceToSegment(behindA, a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := Distance(behindA, a)
	if got != want {
		t.Fatalf("behind a: got %v, want %v", got, want)
	}

	beyondB := domain.Point{Lat: -0.05, Lon: 1.5}
	got, err = DistanceToSegment(beyondB, a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ = Distance(beyondB, b)
	if got != want {
		t.Fatalf("beyond b: got %v, want %v", got, want)
	}
}

func TestDistanceToSegmentPerpendicular(t *testing.T) {
	a := domain.Point{Lat: 0, Lon: 0}
	b := domain.Point{Lat: 0, Lon: 1}
	p := domain.Point{Lat: 0.1, Lon: 0.5}

	got, err := DistanceToSegment(p, a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foot := domain.Point{Lat: 0, Lon: 0.5}
	want, _ := Distance(p, foot)
	if math.Abs(got-want) > 1 {
		t.Fatalf("got %.3f, want %.3f", got, want)
	}

	endA, _ := Distance(p, a)
	endB, _ := Distance(p, b)
	if got > endA || got > endB {
		t.Fatalf("perpendicular distance %.1f exceeds endpoint distances %.1f / %.1f", got, endA, endB)
	}
}

func TestDistanceToSegmentDegenerate(t *testing.T) {
	p := domain.Point{Lat: 1, Lon: 1}

	got, err := DistanceToSegment(p, paris, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := Distance(p, paris)
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, err = DistanceToSegment(paris, paris, lyon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("point on endpoint: got %v, want 0", got)
	}
}

func TestDistanceToPolyline(t *testing.T) {
	pts := []domain.Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 1},
	}
	p := domain.Point{Lat: 0.5, Lon: 1.02}

	got, err := DistanceToPolyline(p, pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, _ := DistanceToSegment(p, pts[1], pts[2])
	if got != second {
		t.Fatalf("got %v, want nearest segment distance %v", got, second)
	}
}

func TestDistanceToPolylineInvalid(t *testing.T) {
	p := domain.Point{Lat: 0, Lon: 0}

	for _, pts := range [][]domain.Point{nil, {paris}} {
		if _, err := DistanceToPolyline(p, pts); !errors.Is(err, domain.ErrInvalidPolyline) {
			t.Errorf("len=%d: err = %v, want ErrInvalidPolyline", len(pts), err)
		}
	}
}
