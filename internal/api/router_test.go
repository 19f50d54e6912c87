package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sales-route-service/internal/api/dto"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/ports"
	"sales-route-service/internal/services"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClients struct {
	clients []domain.Client
}

func (f *fakeClients) ListActiveClients(ctx context.Context, ownerID string) ([]domain.Client, error) {
	out := []domain.Client{}
	for _, c := range f.clients {
		if c.OwnerID == ownerID && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClients) GetClients(ctx context.Context, ownerID string, ids []string) ([]domain.Client, error) {
	out := []domain.Client{}
	for _, c := range f.clients {
		if c.OwnerID == ownerID && slices.Contains(ids, c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClients) UpsertClients(ctx context.Context, clients []domain.Client) error { return nil }

func (f *fakeClients) DeactivateClient(ctx context.Context, ownerID, id string) error {
	for i := range f.clients {
		if f.clients[i].OwnerID == ownerID && f.clients[i].ID == id {
			f.clients[i].Active = false
			return nil
		}
	}
	return ports.ErrNotFound
}

type fakeRoutes struct {
	mu     sync.Mutex
	routes map[string]domain.Route
}

func (f *fakeRoutes) SaveRoute(ctx context.Context, r *domain.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = "r1"
	f.routes[r.ID] = *r
	return nil
}

func (f *fakeRoutes) GetRoute(ctx context.Context, ownerID, id string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[id]
	if !ok || r.OwnerID != ownerID {
		return nil, ports.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRoutes) ListRoutes(ctx context.Context, ownerID string, limit int) ([]domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Route{}
	for _, r := range f.routes {
		if r.OwnerID == ownerID {
			r.Stops = nil
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoutes) ReplaceStops(ctx context.Context, r *domain.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[r.ID] = *r
	return nil
}

func (f *fakeRoutes) DeleteRoute(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[id]
	if !ok || r.OwnerID != ownerID {
		return ports.ErrNotFound
	}
	delete(f.routes, id)
	return nil
}

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(ctx context.Context, address string) (domain.Point, error) {
	return domain.Point{}, errors.New("unused")
}

func (fakeGeocoder) GeocodeMany(ctx context.Context, addresses []string) []ports.GeocodeResult {
	out := make([]ports.GeocodeResult, 0, len(addresses))
	for _, a := range addresses {
		if a == "nowhere" {
			out = append(out, ports.GeocodeResult{Address: a, Err: errors.New("no match")})
			continue
		}
		out = append(out, ports.GeocodeResult{Address: a, Location: &domain.Point{Lat: 1, Lon: 2}})
	}
	return out
}

func newTestRouter(geocoder ports.Geocoder) http.Handler {
	planner := &services.RoutePlanner{
		Clients: &fakeClients{clients: []domain.Client{{
			ID:       "c1",
			OwnerID:  "u1",
			Name:     "Bakery",
			Location: &domain.Point{Lat: 48.85, Lon: 2.35},
			Active:   true,
		}}},
		Routes: &fakeRoutes{routes: map[string]domain.Route{}},
		Defaults: services.PlannerDefaults{
			RadiusMeters:  5000,
			MaxCandidates: 10,
			Visit:         30 * time.Minute,
			Mode:          domain.ModeCar,
		},
	}
	return NewRouter(Deps{
		Planner:      planner,
		Geocoder:     geocoder,
		DefaultMode:  domain.ModeCar,
		DefaultVisit: 30 * time.Minute,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, user string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(nil), http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id response header")
	}
}

func TestScheduleEndpoint(t *testing.T) {
	body := `{
		"start_at": "2026-03-02T09:00:00Z",
		"hard_end_at": "2026-03-02T17:00:00Z",
		"stops": [
			{"location": {"lat": 48.85, "lon": 2.35}},
			{"client_id": "c1", "location": {"lat": 48.86, "lon": 2.36}, "visit_minutes": 30,
			 "leg": {"distance_meters": 5000, "duration_seconds": 600}},
			{"location": {"lat": 48.85, "lon": 2.35}, "leg": {"distance_meters": 5000, "duration_seconds": 600}}
		]
	}`

	rec := do(t, newTestRouter(nil), http.MethodPost, "/schedule", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	res := decode[dto.ScheduleResponse](t, rec)
	if res.TotalVisits != 1 || !res.TimeConstraintMet || len(res.Stops) != 3 {
		t.Fatalf("response = %+v", res)
	}
	want := time.Date(2026, 3, 2, 9, 10, 0, 0, time.UTC)
	if !res.Stops[1].ArriveAt.Equal(want) {
		t.Fatalf("arrival = %v, want %v", res.Stops[1].ArriveAt, want)
	}
	if res.TotalDistanceKm != 10 {
		t.Fatalf("distance = %v, want 10", res.TotalDistanceKm)
	}
}

func TestScheduleValidationError(t *testing.T) {
	body := `{"start_at": "2026-03-02T09:00:00Z", "hard_end_at": "2026-03-02T17:00:00Z", "stops": []}`

	rec := do(t, newTestRouter(nil), http.MethodPost, "/schedule", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	res := decode[map[string]string](t, rec)
	if res["field"] != "stops" {
		t.Fatalf("field = %q, want stops", res["field"])
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	rec := do(t, newTestRouter(nil), http.MethodPost, "/candidates", `{"bogus": 1}`, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCandidatesRequiresOwner(t *testing.T) {
	rec := do(t, newTestRouter(nil), http.MethodPost, "/candidates", `{}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCandidatesEndpoint(t *testing.T) {
	body := `{"start": {"lat": 48.80, "lon": 2.35}, "end": {"lat": 48.90, "lon": 2.35}}`

	rec := do(t, newTestRouter(nil), http.MethodPost, "/candidates", body, "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	res := decode[dto.ListCandidatesResponse](t, rec)
	if len(res.Candidates) != 1 || res.Candidates[0].ClientID != "c1" {
		t.Fatalf("candidates = %+v", res.Candidates)
	}

	// Another owner sees nothing.
	rec = do(t, newTestRouter(nil), http.MethodPost, "/candidates", body, "u2")
	res = decode[dto.ListCandidatesResponse](t, rec)
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates for u2 = %+v, want none", res.Candidates)
	}
}

func TestDeactivateClient(t *testing.T) {
	h := newTestRouter(nil)
	body := `{"start": {"lat": 48.80, "lon": 2.35}, "end": {"lat": 48.90, "lon": 2.35}}`

	if rec := do(t, h, http.MethodDelete, "/clients/c1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/clients/c1", "", "u2"); rec.Code != http.StatusNotFound {
		t.Fatalf("other owner status = %d, want 404", rec.Code)
	}

	rec := do(t, h, http.MethodDelete, "/clients/c1", "", "u1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/candidates", body, "u1")
	res := decode[dto.ListCandidatesResponse](t, rec)
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates = %+v, want none after deactivation", res.Candidates)
	}

	if rec := do(t, h, http.MethodDelete, "/clients/missing", "", "u1"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rec.Code)
	}
}

func TestRouteLifecycle(t *testing.T) {
	h := newTestRouter(nil)

	body := `{
		"start": {"address": "Depot", "location": {"lat": 48.80, "lon": 2.35}},
		"end": {"address": "Home", "location": {"lat": 48.90, "lon": 2.35}},
		"start_at": "2026-03-02T09:00:00Z",
		"hard_end_at": "2026-03-02T17:00:00Z",
		"client_ids": ["c1"]
	}`
	rec := do(t, h, http.MethodPost, "/routes", body, "u1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body=%s", rec.Code, rec.Body.String())
	}
	created := decode[dto.PlanResponse](t, rec)
	if created.Route.ID != "r1" || created.Route.TotalVisits != 1 || len(created.Route.Stops) != 3 {
		t.Fatalf("created = %+v", created.Route)
	}
	if created.Route.Optimization.Method != domain.MethodSimpleOrder {
		t.Fatalf("method = %q, want simple_order", created.Route.Optimization.Method)
	}

	if rec := do(t, h, http.MethodGet, "/routes/r1", "", "u2"); rec.Code != http.StatusNotFound {
		t.Fatalf("other owner status = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/routes/r1", "", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/routes", "", "u1")
	list := decode[dto.ListRoutesResponse](t, rec)
	if len(list.Routes) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = do(t, h, http.MethodPost, "/routes/r1/recalculate", `{"start_at": "2026-03-02T16:50:00Z"}`, "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("recalculate status = %d; body=%s", rec.Code, rec.Body.String())
	}
	recalc := decode[dto.PlanResponse](t, rec)
	if recalc.Route.TotalVisits != 0 || len(recalc.ExcludedClientIDs) != 1 {
		t.Fatalf("recalculated = %+v, want c1 excluded", recalc)
	}

	if rec := do(t, h, http.MethodDelete, "/routes/r1", "", "u1"); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/routes/r1", "", "u1"); rec.Code != http.StatusNotFound {
		t.Fatalf("after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateRouteUnknownClient(t *testing.T) {
	body := `{
		"start": {"location": {"lat": 48.80, "lon": 2.35}},
		"end": {"location": {"lat": 48.90, "lon": 2.35}},
		"start_at": "2026-03-02T09:00:00Z",
		"hard_end_at": "2026-03-02T17:00:00Z",
		"client_ids": ["missing"]
	}`
	rec := do(t, newTestRouter(nil), http.MethodPost, "/routes", body, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if res := decode[map[string]string](t, rec); res["field"] != "client_ids" {
		t.Fatalf("field = %q, want client_ids", res["field"])
	}
}

func TestGeocodeEndpoint(t *testing.T) {
	if rec := do(t, newTestRouter(nil), http.MethodPost, "/geocode", `{"addresses": ["a"]}`, "u1"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without geocoder = %d, want 503", rec.Code)
	}

	rec := do(t, newTestRouter(fakeGeocoder{}), http.MethodPost, "/geocode", `{"addresses": ["1 Main St", "nowhere"]}`, "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	res := decode[dto.GeocodeResponse](t, rec)
	if res.Failed != 1 || len(res.Results) != 2 {
		t.Fatalf("response = %+v", res)
	}
	if res.Results[0].Location == nil || res.Results[1].Error == "" {
		t.Fatalf("results = %+v", res.Results)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RegisterDefault()
	h := newTestRouter(nil)

	_ = do(t, h, http.MethodGet, "/health", "", "")
	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"}`) {
		t.Fatalf("metrics output missing health request counter")
	}
}
