package ors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/ports"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler, dc ports.DistanceCache, gc ports.GeocodeCache) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", dc, gc,
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

type memDistanceCache struct {
	mu   sync.Mutex
	legs map[string]domain.Leg
}

func (m *memDistanceCache) GetMany(ctx context.Context, mode domain.TravelMode, origin string, dests []string) (map[string]domain.Leg, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]domain.Leg{}
	for _, d := range dests {
		if l, ok := m.legs[string(mode)+origin+d]; ok {
			out[d] = l
		}
	}
	return out, nil
}

func (m *memDistanceCache) PutMany(ctx context.Context, mode domain.TravelMode, origin string, results map[string]domain.Leg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for d, l := range results {
		m.legs[string(mode)+origin+d] = l
	}
	return nil
}

var (
	origin = domain.Point{Lat: 48.8566, Lon: 2.3522}
	destA  = domain.Point{Lat: 48.8606, Lon: 2.3376}
	destB  = domain.Point{Lat: 48.8530, Lon: 2.3499}
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", nil, nil); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestStatusErrorRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{404, false},
	}
	for _, tt := range tests {
		if got := (&StatusError{Code: tt.code}).Retryable(); got != tt.want {
			t.Errorf("Retryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestGetDistancesRetriesThenCaches(t *testing.T) {
	var calls atomic.Int32

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/matrix/driving-car" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("missing api key header")
		}

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Locations) != 3 || req.Locations[0][0] != origin.Lon {
			t.Errorf("locations = %v, want origin first as [lon, lat]", req.Locations)
		}

		_, _ = w.Write([]byte(`{"distances":[[1200.4,800.6]],"durations":[[150.2,99.5]]}`))
	})

	cache := &memDistanceCache{legs: map[string]domain.Leg{}}
	c := newTestClient(t, h, cache, nil)

	got, err := c.GetDistances(context.Background(), domain.ModeCar, origin, []domain.Point{destA, destB, destA, origin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls.Load())
	}

	if got[destA.Key()] != (domain.Leg{DistanceMeters: 1200, DurationSeconds: 150}) {
		t.Fatalf("leg A = %+v", got[destA.Key()])
	}
	if got[destB.Key()] != (domain.Leg{DistanceMeters: 801, DurationSeconds: 100}) {
		t.Fatalf("leg B = %+v", got[destB.Key()])
	}
	if got[origin.Key()] != (domain.Leg{}) {
		t.Fatalf("origin leg = %+v, want zero", got[origin.Key()])
	}

	// Second lookup is served from cache.
	leg, err := c.GetDistance(context.Background(), domain.ModeCar, origin, destB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leg.DistanceMeters != 801 || calls.Load() != 2 {
		t.Fatalf("leg = %+v after %d calls, want cached result", leg, calls.Load())
	}
}

func TestGetDistancesTerminalError(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad profile"}`, http.StatusBadRequest)
	})
	c := newTestClient(t, h, nil, nil)

	_, err := c.GetDistances(context.Background(), domain.ModeCar, origin, []domain.Point{destA})

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want StatusError 400", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestGetDistancesGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, h, nil, nil)

	_, err := c.GetDistances(context.Background(), domain.ModeCar, origin, []domain.Point{destA})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d, want 4", calls.Load())
	}
}

func TestGetDistancesUnroutable(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[[null]],"durations":[[null]]}`))
	})
	c := newTestClient(t, h, nil, nil)

	if _, err := c.GetDistances(context.Background(), domain.ModeCar, origin, []domain.Point{destA}); err == nil {
		t.Fatal("expected error for null matrix entry")
	}
}

func TestGeocodeManyPerItemResults(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch text := r.URL.Query().Get("text"); {
		case strings.HasPrefix(text, "10 Rue de Rivoli"):
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[2.3553,48.8554]}}]}`))
		case text == "broken":
			w.WriteHeader(http.StatusBadRequest)
		default:
			_, _ = w.Write([]byte(`{"features":[]}`))
		}
	})
	c := newTestClient(t, h, nil, nil)

	res := c.GeocodeMany(context.Background(), []string{"10 Rue de Rivoli,  Paris", "nowhere", "broken", "  "})
	if len(res) != 4 {
		t.Fatalf("results = %d, want 4", len(res))
	}

	if res[0].Err != nil || res[0].Location == nil || res[0].Location.Lat != 48.8554 {
		t.Fatalf("first = %+v, want a location", res[0])
	}
	if !errors.Is(res[1].Err, ErrNoMatch) {
		t.Fatalf("second err = %v, want ErrNoMatch", res[1].Err)
	}
	var se *StatusError
	if !errors.As(res[2].Err, &se) {
		t.Fatalf("third err = %v, want StatusError", res[2].Err)
	}
	if !errors.Is(res[3].Err, domain.ErrInvalidInput) {
		t.Fatalf("fourth err = %v, want invalid input", res[3].Err)
	}
	if res[1].Address != "nowhere" {
		t.Fatalf("address = %q, want input echoed", res[1].Address)
	}
}

func TestOptimizeParsesSteps(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/optimization" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var req vroomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Jobs) != 3 || len(req.Vehicles) != 1 {
			t.Errorf("jobs=%d vehicles=%d", len(req.Jobs), len(req.Vehicles))
		}
		v := req.Vehicles[0]
		if v.Profile != "driving-car" || v.TimeWindow[0] != start.Unix() || len(v.Breaks) != 1 {
			t.Errorf("vehicle = %+v", v)
		}
		if len(req.Jobs[0].TimeWindows) != 1 || req.Jobs[0].Service != 1800 {
			t.Errorf("job = %+v", req.Jobs[0])
		}

		_, _ = w.Write([]byte(`{
			"code": 0,
			"summary": {"computing_times": {"loading": 3, "solving": 2, "routing": 5}},
			"unassigned": [{"id": 3}],
			"routes": [{"vehicle": 1, "steps": [
				{"type": "start", "duration": 0, "distance": 0},
				{"type": "job", "id": 2, "duration": 600, "distance": 5000},
				{"type": "break", "id": 1, "duration": 600, "distance": 5000},
				{"type": "job", "id": 1, "duration": 900, "distance": 7500},
				{"type": "end", "duration": 1500, "distance": 12000}
			]}]
		}`))
	})
	c := newTestClient(t, h, nil, nil)

	seq, err := c.Optimize(context.Background(), ports.OptimizeRequest{
		Start:     origin,
		End:       origin,
		StartAt:   start,
		HardEndAt: start.Add(8 * time.Hour),
		Lunch:     &domain.LunchBreak{Start: 12 * 60, Duration: time.Hour},
		Mode:      domain.ModeCar,
		Jobs: []ports.OptimizeJob{
			{ID: "c1", Location: destA, Service: 30 * time.Minute, OpensAt: 9 * 60, ClosesAt: 17 * 60},
			{ID: "c2", Location: destB, Service: 30 * time.Minute, OpensAt: 9 * 60, ClosesAt: 17 * 60},
			{ID: "c3", Location: destB, Service: 30 * time.Minute},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seq.Order) != 2 || seq.Order[0] != "c2" || seq.Order[1] != "c1" {
		t.Fatalf("order = %v, want [c2 c1]", seq.Order)
	}
	want := []domain.Leg{
		{DistanceMeters: 5000, DurationSeconds: 600},
		{DistanceMeters: 2500, DurationSeconds: 300},
		{DistanceMeters: 4500, DurationSeconds: 600},
	}
	if len(seq.Legs) != len(want) {
		t.Fatalf("legs = %v, want %v", seq.Legs, want)
	}
	for i := range want {
		if seq.Legs[i] != want[i] {
			t.Fatalf("leg %d = %+v, want %+v", i, seq.Legs[i], want[i])
		}
	}

	if len(seq.Unassigned) != 1 || seq.Unassigned[0] != "c3" {
		t.Fatalf("unassigned = %v, want [c3]", seq.Unassigned)
	}
	meta := seq.Metadata
	if meta.Method != domain.MethodOptimized || meta.Optimized.ComputingTimeMs != 10 || meta.Optimized.Provider != "openrouteservice" {
		t.Fatalf("metadata = %+v", meta.Optimized)
	}
}

func TestOptimizeVroomError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 2, "error": "Invalid profile"}`))
	})
	c := newTestClient(t, h, nil, nil)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := c.Optimize(context.Background(), ports.OptimizeRequest{
		Start:     origin,
		End:       origin,
		StartAt:   start,
		HardEndAt: start.Add(time.Hour),
		Mode:      domain.ModeCar,
		Jobs:      []ports.OptimizeJob{{ID: "c1", Location: destA}},
	})
	if err == nil || !strings.Contains(err.Error(), "Invalid profile") {
		t.Fatalf("err = %v, want vroom error", err)
	}
}

func TestOptimizeCanceled(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, h, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := c.Optimize(ctx, ports.OptimizeRequest{
		Start:     origin,
		End:       origin,
		StartAt:   start,
		HardEndAt: start.Add(time.Hour),
		Mode:      domain.ModeCar,
		Jobs:      []ports.OptimizeJob{{ID: "c1", Location: destA}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
