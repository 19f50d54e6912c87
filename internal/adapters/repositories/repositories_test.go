package repositories

import (
	"errors"
	"sales-route-service/internal/domain"
	"strings"
	"testing"
	"time"
)

func TestParseClientSeeds(t *testing.T) {
	data := []byte(`[
		{"id": "c1", "owner_id": "u1", "name": "Bakery", "address": "1 Rue A", "lat": 48.85, "lon": 2.35},
		{"id": "c2", "owner_id": "u1", "name": "Florist", "address": "2 Rue B", "opens_at": "08:30", "closes_at": "12:00"}
	]`)

	got, err := ParseClientSeeds(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clients, want 2", len(got))
	}

	if got[0].Location == nil || got[0].Location.Lat != 48.85 {
		t.Fatalf("c1 location = %v, want 48.85", got[0].Location)
	}
	if got[0].OpensAt != domain.DefaultOpensAt || got[0].ClosesAt != domain.DefaultClosesAt {
		t.Fatalf("c1 hours = %s-%s, want defaults", got[0].OpensAt, got[0].ClosesAt)
	}

	if got[1].Location != nil {
		t.Fatalf("c2 location = %v, want nil (not geocoded)", got[1].Location)
	}
	if got[1].OpensAt != 8*60+30 || got[1].ClosesAt != 12*60 {
		t.Fatalf("c2 hours = %s-%s, want 08:30-12:00", got[1].OpensAt, got[1].ClosesAt)
	}
	if !got[1].Active {
		t.Fatal("seeded clients must be active")
	}
}

func TestParseClientSeedsRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"missing owner", `[{"id": "c1", "name": "x", "address": "a"}]`, "owner_id"},
		{"empty name", `[{"id": "c1", "owner_id": "u", "address": "a"}]`, "name"},
		{"half coordinate", `[{"id": "c1", "owner_id": "u", "name": "x", "lat": 1}]`, "together"},
		{"no address or coords", `[{"id": "c1", "owner_id": "u", "name": "x"}]`, "address or coordinates"},
		{"bad hours", `[{"id": "c1", "owner_id": "u", "name": "x", "address": "a", "opens_at": "18:00"}]`, "before closes_at"},
		{"bad time", `[{"id": "c1", "owner_id": "u", "name": "x", "address": "a", "opens_at": "9am"}]`, "HH:MM"},
		{"not json", `{`, "parse json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClientSeeds([]byte(tt.json))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseClientSeedsInvalidCoordinate(t *testing.T) {
	_, err := ParseClientSeeds([]byte(`[{"id": "c1", "owner_id": "u", "name": "x", "lat": 95, "lon": 0}]`))
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
}

func TestRouteRowRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	route := &domain.Route{
		ID:           "r1",
		OwnerID:      "u1",
		Name:         "Monday",
		Start:        domain.Place{Address: "Depot", Location: domain.Point{Lat: 48.8, Lon: 2.3}},
		End:          domain.Place{Address: "Home", Location: domain.Point{Lat: 48.9, Lon: 2.4}},
		StartAt:      start,
		HardEndAt:    start.Add(8 * time.Hour),
		Lunch:        &domain.LunchBreak{Start: 12 * 60, Duration: 45 * time.Minute},
		TravelMode:   domain.ModeCar,
		Optimization: domain.SimpleOrder("user_order"),
		TotalVisits:  3,
	}

	row, err := routeToRow(route)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *row.LunchMinutes != 45 || *row.LunchStart != 720 {
		t.Fatalf("lunch columns = %d/%d, want 720/45", *row.LunchStart, *row.LunchMinutes)
	}

	back, err := row.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Lunch == nil || *back.Lunch != *route.Lunch {
		t.Fatalf("lunch = %+v, want %+v", back.Lunch, route.Lunch)
	}
	if back.Optimization.Method != domain.MethodSimpleOrder || back.Optimization.SimpleOrder.Reason != "user_order" {
		t.Fatalf("optimization = %+v", back.Optimization)
	}
	if back.End.Location != route.End.Location || back.TotalVisits != 3 {
		t.Fatalf("route = %+v", back)
	}
}

func TestRouteRowRejectsBadMetadata(t *testing.T) {
	_, err := routeToRow(&domain.Route{Optimization: domain.OptimizationMetadata{Method: "magic"}})
	if err == nil {
		t.Fatal("expected error for invalid optimization metadata")
	}
}

func TestStopRowRoundTrip(t *testing.T) {
	id := "c1"
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := domain.Stop{
		ClientID:      &id,
		Address:       "1 Rue A",
		Location:      domain.Point{Lat: 48.85, Lon: 2.35},
		Order:         1,
		Type:          domain.StopClient,
		ArriveAt:      at,
		DepartAt:      at.Add(30 * time.Minute),
		TravelSeconds: 600,
		TravelMeters:  5000,
		VisitDuration: 30 * time.Minute,
		Exclusion:     domain.ExclusionNone,
		Included:      true,
	}

	row := stopToRow("r1", "u1", s)
	if row.VisitSeconds != 1800 || row.OwnerID != "u1" || row.RouteID != "r1" {
		t.Fatalf("row = %+v", row)
	}

	back := row.toDomain()
	if back.VisitDuration != s.VisitDuration || *back.ClientID != "c1" || back.Type != domain.StopClient {
		t.Fatalf("stop = %+v, want %+v", back, s)
	}
}

func TestClientRowHoursDefault(t *testing.T) {
	row := clientToRow(domain.Client{ID: "c1", OwnerID: "u1", Name: "x"})
	if row.OpensAt != int(domain.DefaultOpensAt) || row.ClosesAt != int(domain.DefaultClosesAt) {
		t.Fatalf("hours = %d-%d, want defaults", row.OpensAt, row.ClosesAt)
	}
	if row.Lat != nil {
		t.Fatalf("lat = %v, want nil", row.Lat)
	}

	back := row.toDomain()
	if back.Location != nil {
		t.Fatalf("location = %v, want nil", back.Location)
	}
}

func TestRouteRowRestoresPlanningZone(t *testing.T) {
	cet := time.FixedZone("", 3600)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, cet)

	row, err := routeToRow(&domain.Route{
		ID:           "r1",
		OwnerID:      "u1",
		StartAt:      start,
		HardEndAt:    start.Add(8 * time.Hour),
		TimeZone:     domain.ZoneName(start),
		Optimization: domain.SimpleOrder("user_order"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.TimeZone != "+01:00" {
		t.Fatalf("time_zone = %q, want +01:00", row.TimeZone)
	}

	// TIMESTAMPTZ comes back in the server's zone.
	row.StartAt = row.StartAt.UTC()
	row.HardEndAt = row.HardEndAt.UTC()

	back, err := row.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.StartAt.Equal(start) || back.StartAt.Hour() != 9 {
		t.Fatalf("start = %v, want 09:00 +01:00", back.StartAt)
	}
	if back.HardEndAt.Hour() != 17 {
		t.Fatalf("hard end = %v, want 17:00 +01:00", back.HardEndAt)
	}
}
