package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RouteRepository stores routes and their stops. A route and its stop set
// are always written in one transaction.
type RouteRepository struct {
	DB *sqlx.DB
}

func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{DB: db}
}

var _ ports.RouteRepository = (*RouteRepository)(nil)

type routeRow struct {
	ID                   string    `db:"id"`
	OwnerID              string    `db:"owner_id"`
	Name                 string    `db:"name"`
	StartAddress         string    `db:"start_address"`
	StartLat             float64   `db:"start_lat"`
	StartLon             float64   `db:"start_lon"`
	EndAddress           string    `db:"end_address"`
	EndLat               float64   `db:"end_lat"`
	EndLon               float64   `db:"end_lon"`
	StartAt              time.Time `db:"start_at"`
	HardEndAt            time.Time `db:"hard_end_at"`
	TimeZone             string    `db:"time_zone"`
	LunchStart           *int      `db:"lunch_start"`
	LunchMinutes         *int      `db:"lunch_minutes"`
	TravelMode           string    `db:"travel_mode"`
	Optimization         []byte    `db:"optimization"`
	TotalDistanceKm      float64   `db:"total_distance_km"`
	TotalDurationMinutes float64   `db:"total_duration_minutes"`
	TotalVisits          int       `db:"total_visits"`
	TimeConstraintMet    bool      `db:"time_constraint_met"`
	CreatedAt            time.Time `db:"created_at"`
}

type stopRow struct {
	ID            string    `db:"id"`
	RouteID       string    `db:"route_id"`
	OwnerID       string    `db:"owner_id"`
	ClientID      *string   `db:"client_id"`
	Address       string    `db:"address"`
	Lat           float64   `db:"lat"`
	Lon           float64   `db:"lon"`
	StopOrder     int       `db:"stop_order"`
	StopType      string    `db:"stop_type"`
	ArriveAt      time.Time `db:"arrive_at"`
	DepartAt      time.Time `db:"depart_at"`
	TravelSeconds int       `db:"travel_seconds"`
	TravelMeters  int       `db:"travel_meters"`
	VisitSeconds  int       `db:"visit_seconds"`
	Included      bool      `db:"included"`
	Exclusion     string    `db:"exclusion"`
}

func routeToRow(r *domain.Route) (routeRow, error) {
	meta, err := json.Marshal(r.Optimization)
	if err != nil {
		return routeRow{}, fmt.Errorf("encode optimization metadata: %w", err)
	}

	row := routeRow{
		ID:                   r.ID,
		OwnerID:              r.OwnerID,
		Name:                 r.Name,
		StartAddress:         r.Start.Address,
		StartLat:             r.Start.Location.Lat,
		StartLon:             r.Start.Location.Lon,
		EndAddress:           r.End.Address,
		EndLat:               r.End.Location.Lat,
		EndLon:               r.End.Location.Lon,
		StartAt:              r.StartAt,
		HardEndAt:            r.HardEndAt,
		TimeZone:             r.TimeZone,
		TravelMode:           string(r.TravelMode),
		Optimization:         meta,
		TotalDistanceKm:      r.TotalDistanceKm,
		TotalDurationMinutes: r.TotalDurationMinutes,
		TotalVisits:          r.TotalVisits,
		TimeConstraintMet:    r.TimeConstraintMet,
		CreatedAt:            r.CreatedAt,
	}
	if r.Lunch != nil {
		start, minutes := int(r.Lunch.Start), int(r.Lunch.Duration/time.Minute)
		row.LunchStart, row.LunchMinutes = &start, &minutes
	}
	return row, nil
}

func (row routeRow) toDomain() (*domain.Route, error) {
	var meta domain.OptimizationMetadata
	if err := json.Unmarshal(row.Optimization, &meta); err != nil {
		return nil, fmt.Errorf("route %s: %w", row.ID, err)
	}

	r := &domain.Route{
		ID:                   row.ID,
		OwnerID:              row.OwnerID,
		Name:                 row.Name,
		Start:                domain.Place{Address: row.StartAddress, Location: domain.Point{Lat: row.StartLat, Lon: row.StartLon}},
		End:                  domain.Place{Address: row.EndAddress, Location: domain.Point{Lat: row.EndLat, Lon: row.EndLon}},
		StartAt:              row.StartAt,
		HardEndAt:            row.HardEndAt,
		TimeZone:             row.TimeZone,
		TravelMode:           domain.TravelMode(row.TravelMode),
		Optimization:         meta,
		TotalDistanceKm:      row.TotalDistanceKm,
		TotalDurationMinutes: row.TotalDurationMinutes,
		TotalVisits:          row.TotalVisits,
		TimeConstraintMet:    row.TimeConstraintMet,
		CreatedAt:            row.CreatedAt,
	}
	if row.LunchStart != nil && row.LunchMinutes != nil {
		r.Lunch = &domain.LunchBreak{
			Start:    domain.TimeOfDay(*row.LunchStart),
			Duration: time.Duration(*row.LunchMinutes) * time.Minute,
		}
	}
	if err := r.RestoreZone(); err != nil {
		return nil, fmt.Errorf("route %s: %w", row.ID, err)
	}
	return r, nil
}

func stopToRow(routeID, ownerID string, s domain.Stop) stopRow {
	return stopRow{
		ID:            s.ID,
		RouteID:       routeID,
		OwnerID:       ownerID,
		ClientID:      s.ClientID,
		Address:       s.Address,
		Lat:           s.Location.Lat,
		Lon:           s.Location.Lon,
		StopOrder:     s.Order,
		StopType:      string(s.Type),
		ArriveAt:      s.ArriveAt,
		DepartAt:      s.DepartAt,
		TravelSeconds: s.TravelSeconds,
		TravelMeters:  s.TravelMeters,
		VisitSeconds:  int(s.VisitDuration / time.Second),
		Included:      s.Included,
		Exclusion:     string(s.Exclusion),
	}
}

func (row stopRow) toDomain() domain.Stop {
	return domain.Stop{
		ID:            row.ID,
		RouteID:       row.RouteID,
		ClientID:      row.ClientID,
		Address:       row.Address,
		Location:      domain.Point{Lat: row.Lat, Lon: row.Lon},
		Order:         row.StopOrder,
		Type:          domain.StopType(row.StopType),
		ArriveAt:      row.ArriveAt,
		DepartAt:      row.DepartAt,
		TravelSeconds: row.TravelSeconds,
		TravelMeters:  row.TravelMeters,
		VisitDuration: time.Duration(row.VisitSeconds) * time.Second,
		Included:      row.Included,
		Exclusion:     domain.ExclusionReason(row.Exclusion),
	}
}

const routeColumns = `id, owner_id, name, start_address, start_lat, start_lon,
	end_address, end_lat, end_lon, start_at, hard_end_at, time_zone, lunch_start, lunch_minutes,
	travel_mode, optimization, total_distance_km, total_duration_minutes, total_visits,
	time_constraint_met, created_at`

const stopColumns = `id, route_id, owner_id, client_id, address, lat, lon, stop_order,
	stop_type, arrive_at, depart_at, travel_seconds, travel_meters, visit_seconds,
	included, exclusion`

// SaveRoute assigns ids to the route and its stops and writes them
// atomically.
func (r *RouteRepository) SaveRoute(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "routes.Save")(&err)

	if route.OwnerID == "" {
		return errors.New("save route: owner_id is required")
	}
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	if route.CreatedAt.IsZero() {
		route.CreatedAt = time.Now().UTC()
	}

	row, err := routeToRow(route)
	if err != nil {
		return fmt.Errorf("save route: %w", err)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save route: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO routes (` + routeColumns + `) VALUES (
		:id, :owner_id, :name, :start_address, :start_lat, :start_lon,
		:end_address, :end_lat, :end_lon, :start_at, :hard_end_at, :time_zone, :lunch_start, :lunch_minutes,
		:travel_mode, :optimization, :total_distance_km, :total_duration_minutes, :total_visits,
		:time_constraint_met, :created_at);`
	if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("save route: insert route: %w", err)
	}

	if err := insertStops(ctx, tx, route); err != nil {
		return fmt.Errorf("save route: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save route: commit: %w", err)
	}
	return nil
}

func (r *RouteRepository) GetRoute(ctx context.Context, ownerID, id string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.Get")(&err)

	var row routeRow
	q := `SELECT ` + routeColumns + ` FROM routes WHERE owner_id = $1 AND id = $2;`
	if err := r.DB.GetContext(ctx, &row, q, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("route %q: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("get route: %w", err)
	}

	route, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	var stops []stopRow
	sq := `SELECT ` + stopColumns + ` FROM route_stops WHERE owner_id = $1 AND route_id = $2 ORDER BY stop_order;`
	if err := r.DB.SelectContext(ctx, &stops, sq, ownerID, id); err != nil {
		return nil, fmt.Errorf("get route stops: %w", err)
	}

	route.Stops = make([]domain.Stop, 0, len(stops))
	for _, s := range stops {
		route.Stops = append(route.Stops, s.toDomain())
	}
	if err := route.RestoreZone(); err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	return route, nil
}

// ListRoutes returns the owner's most recent routes without their stops.
func (r *RouteRepository) ListRoutes(ctx context.Context, ownerID string, limit int) (_ []domain.Route, err error) {
	defer obs.Time(ctx, "routes.List")(&err)

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []routeRow
	q := `SELECT ` + routeColumns + ` FROM routes WHERE owner_id = $1 ORDER BY created_at DESC, id LIMIT $2;`
	if err := r.DB.SelectContext(ctx, &rows, q, ownerID, limit); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	out := make([]domain.Route, 0, len(rows))
	for _, row := range rows {
		route, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("list routes: %w", err)
		}
		out = append(out, *route)
	}
	return out, nil
}

// ReplaceStops swaps the whole stop set and the recalculated route fields
// in one transaction.
func (r *RouteRepository) ReplaceStops(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "routes.ReplaceStops")(&err)

	row, err := routeToRow(route)
	if err != nil {
		return fmt.Errorf("replace stops: %w", err)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace stops: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `UPDATE routes SET
		start_at = :start_at,
		hard_end_at = :hard_end_at,
		time_zone = :time_zone,
		lunch_start = :lunch_start,
		lunch_minutes = :lunch_minutes,
		optimization = :optimization,
		total_distance_km = :total_distance_km,
		total_duration_minutes = :total_duration_minutes,
		total_visits = :total_visits,
		time_constraint_met = :time_constraint_met
	WHERE owner_id = :owner_id AND id = :id;`
	res, err := tx.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("replace stops: update route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace stops: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("route %q: %w", route.ID, ports.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM route_stops WHERE owner_id = $1 AND route_id = $2;`,
		route.OwnerID, route.ID,
	); err != nil {
		return fmt.Errorf("replace stops: delete stops: %w", err)
	}

	if err := insertStops(ctx, tx, route); err != nil {
		return fmt.Errorf("replace stops: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace stops: commit: %w", err)
	}
	return nil
}

func (r *RouteRepository) DeleteRoute(ctx context.Context, ownerID, id string) (err error) {
	defer obs.Time(ctx, "routes.Delete")(&err)

	res, err := r.DB.ExecContext(ctx, `DELETE FROM routes WHERE owner_id = $1 AND id = $2;`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("route %q: %w", id, ports.ErrNotFound)
	}
	return nil
}

// insertStops gives every stop a fresh id and writes them in one batch.
func insertStops(ctx context.Context, tx *sqlx.Tx, route *domain.Route) error {
	if len(route.Stops) == 0 {
		return nil
	}

	rows := make([]stopRow, 0, len(route.Stops))
	for i := range route.Stops {
		route.Stops[i].ID = uuid.NewString()
		route.Stops[i].RouteID = route.ID
		rows = append(rows, stopToRow(route.ID, route.OwnerID, route.Stops[i]))
	}

	q := `INSERT INTO route_stops (` + stopColumns + `) VALUES (
		:id, :route_id, :owner_id, :client_id, :address, :lat, :lon, :stop_order,
		:stop_type, :arrive_at, :depart_at, :travel_seconds, :travel_meters, :visit_seconds,
		:included, :exclusion);`
	if _, err := tx.NamedExecContext(ctx, q, rows); err != nil {
		return fmt.Errorf("insert stops: %w", err)
	}
	return nil
}
