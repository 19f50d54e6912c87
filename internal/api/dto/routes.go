package dto

import (
	"sales-route-service/internal/domain"
	"time"
)

type CreateRouteRequest struct {
	Name             string         `json:"name"`
	Start            Place          `json:"start"`
	End              Place          `json:"end"`
	Waypoints        []domain.Point `json:"waypoints"`
	StartAt          time.Time      `json:"start_at"`
	HardEndAt        time.Time      `json:"hard_end_at"`
	Lunch            *LunchBreak    `json:"lunch"`
	TravelMode       string         `json:"travel_mode"`
	ClientIDs        []string       `json:"client_ids"`
	VisitMinutes     int            `json:"visit_minutes"`
	AutoDiscover     bool           `json:"auto_discover"`
	RadiusMeters     float64        `json:"radius_meters"`
	MaxCandidates    int            `json:"max_candidates"`
	Optimize         bool           `json:"optimize"`
	TrimToFit        bool           `json:"trim_to_fit"`
	MaterializeBreak bool           `json:"materialize_break"`
}

type RecalculateRouteRequest struct {
	StartAt          *time.Time  `json:"start_at"`
	HardEndAt        *time.Time  `json:"hard_end_at"`
	Lunch            *LunchBreak `json:"lunch"`
	ClearLunch       bool        `json:"clear_lunch"`
	VisitMinutes     int         `json:"visit_minutes"`
	MaterializeBreak bool        `json:"materialize_break"`
}

type RouteResponse struct {
	ID                   string                      `json:"id"`
	Name                 string                      `json:"name"`
	Start                Place                       `json:"start"`
	End                  Place                       `json:"end"`
	StartAt              time.Time                   `json:"start_at"`
	HardEndAt            time.Time                   `json:"hard_end_at"`
	TimeZone             string                      `json:"time_zone"`
	Lunch                *LunchBreak                 `json:"lunch,omitempty"`
	TravelMode           domain.TravelMode           `json:"travel_mode"`
	Optimization         domain.OptimizationMetadata `json:"optimization"`
	TotalDistanceKm      float64                     `json:"total_distance_km"`
	TotalDurationMinutes float64                     `json:"total_duration_minutes"`
	TotalVisits          int                         `json:"total_visits"`
	TimeConstraintMet    bool                        `json:"time_constraint_met"`
	Stops                []StopResponse              `json:"stops,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
}

func RouteFromDomain(r *domain.Route) RouteResponse {
	res := RouteResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		Start:                PlaceFromDomain(r.Start),
		End:                  PlaceFromDomain(r.End),
		StartAt:              r.StartAt,
		HardEndAt:            r.HardEndAt,
		TimeZone:             r.TimeZone,
		Lunch:                LunchFromDomain(r.Lunch),
		TravelMode:           r.TravelMode,
		Optimization:         r.Optimization,
		TotalDistanceKm:      r.TotalDistanceKm,
		TotalDurationMinutes: r.TotalDurationMinutes,
		TotalVisits:          r.TotalVisits,
		TimeConstraintMet:    r.TimeConstraintMet,
		CreatedAt:            r.CreatedAt,
	}
	if len(r.Stops) > 0 {
		res.Stops = StopsFromDomain(r.Stops)
	}
	return res
}

type PlanResponse struct {
	Route             RouteResponse       `json:"route"`
	Candidates        []CandidateResponse `json:"candidates"`
	Dropped           []string            `json:"dropped"`
	ExcludedClientIDs []string            `json:"excluded_client_ids"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}
