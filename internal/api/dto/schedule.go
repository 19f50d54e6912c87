package dto

import (
	"sales-route-service/internal/domain"
	"time"
)

type LegRequest struct {
	DistanceMeters  int `json:"distance_meters"`
	DurationSeconds int `json:"duration_seconds"`
}

// ScheduleStopRequest is one caller-supplied stop. Type defaults to start
// for the first stop, end for the last and client otherwise.
type ScheduleStopRequest struct {
	Type         domain.StopType   `json:"type"`
	ClientID     string            `json:"client_id"`
	Address      string            `json:"address"`
	Location     *domain.Point     `json:"location"`
	VisitMinutes int               `json:"visit_minutes"`
	OpensAt      *domain.TimeOfDay `json:"opens_at"`
	ClosesAt     *domain.TimeOfDay `json:"closes_at"`
	Leg          *LegRequest       `json:"leg"`
}

type ScheduleRequest struct {
	Stops               []ScheduleStopRequest `json:"stops"`
	StartAt             time.Time             `json:"start_at"`
	HardEndAt           time.Time             `json:"hard_end_at"`
	Lunch               *LunchBreak           `json:"lunch"`
	TravelMode          string                `json:"travel_mode"`
	DefaultVisitMinutes int                   `json:"default_visit_minutes"`
	MaterializeBreak    bool                  `json:"materialize_break"`
}

type ExclusionResponse struct {
	ClientID string                 `json:"client_id"`
	Order    int                    `json:"order"`
	Reason   domain.ExclusionReason `json:"reason"`
}

type ScheduleResponse struct {
	Stops                []StopResponse      `json:"stops"`
	TotalDistanceKm      float64             `json:"total_distance_km"`
	TotalDurationMinutes float64             `json:"total_duration_minutes"`
	ElapsedMinutes       float64             `json:"elapsed_minutes"`
	TotalVisits          int                 `json:"total_visits"`
	TimeConstraintMet    bool                `json:"time_constraint_met"`
	ExcludedClientIDs    []string            `json:"excluded_client_ids"`
	Exclusions           []ExclusionResponse `json:"exclusions"`
}
