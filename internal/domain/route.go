package domain

import (
	"fmt"
	"time"
)

// TravelMode doubles as the routing profile name understood by ORS.
type TravelMode string

const (
	ModeCar     TravelMode = "driving-car"
	ModeTruck   TravelMode = "driving-hgv"
	ModeBicycle TravelMode = "cycling-regular"
	ModeFoot    TravelMode = "foot-walking"
)

// ParseTravelMode accepts the profile names plus a few vehicle aliases.
func ParseTravelMode(s string) (TravelMode, error) {
	switch s {
	case "", "car", string(ModeCar):
		return ModeCar, nil
	case "truck", "van", string(ModeTruck):
		return ModeTruck, nil
	case "bike", "bicycle", string(ModeBicycle):
		return ModeBicycle, nil
	case "foot", "walking", string(ModeFoot):
		return ModeFoot, nil
	}
	return "", fmt.Errorf("%w: unknown travel mode %q", ErrInvalidInput, s)
}

// AverageSpeedKmh is used for straight-line travel estimates.
func (m TravelMode) AverageSpeedKmh() float64 {
	switch m {
	case ModeTruck:
		return 40
	case ModeBicycle:
		return 15
	case ModeFoot:
		return 5
	default:
		return 50
	}
}

type StopType string

const (
	StopStart  StopType = "start"
	StopClient StopType = "client"
	StopBreak  StopType = "break"
	StopEnd    StopType = "end"
)

// ExclusionReason explains why a client stop is not counted as a visit,
// or why the end stop misses the hard end.
type ExclusionReason string

const (
	ExclusionNone         ExclusionReason = ""
	ExclusionOpeningHours ExclusionReason = "outside_opening_hours"
	ExclusionEndTime      ExclusionReason = "exceeds_end_time"
)

// Stop is one position in a route's visit sequence.
// A stop with Included=false still occupies its slot; the vehicle passes
// through it but no visit is counted.
type Stop struct {
	ID            string
	RouteID       string
	ClientID      *string
	Address       string
	Location      Point
	Order         int
	Type          StopType
	ArriveAt      time.Time
	DepartAt      time.Time
	TravelSeconds int
	TravelMeters  int
	VisitDuration time.Duration
	Included      bool
	Exclusion     ExclusionReason
}

// Leg is the travel from one stop to the next.
type Leg struct {
	DistanceMeters  int
	DurationSeconds int
}

// Duration returns the leg travel time.
func (l Leg) Duration() time.Duration {
	return time.Duration(l.DurationSeconds) * time.Second
}

// Place is a free-form address with coordinates (route start/end).
type Place struct {
	Address  string
	Location Point
}

// Route is a planned one-day itinerary. Routes are immutable after creation
// except for deletion and whole-stop-set recalculation.
type Route struct {
	ID                   string
	OwnerID              string
	Name                 string
	Start                Place
	End                  Place
	StartAt              time.Time
	HardEndAt            time.Time
	// TimeZone is the planning zone (see ZoneName). Opening hours and the
	// lunch break are wall-clock times in this zone.
	TimeZone             string
	Lunch                *LunchBreak
	TravelMode           TravelMode
	Optimization         OptimizationMetadata
	TotalDistanceKm      float64
	TotalDurationMinutes float64
	TotalVisits          int
	TimeConstraintMet    bool
	Stops                []Stop
	CreatedAt            time.Time
}

// RestoreZone moves the route's timestamps back into its planning zone.
// Storage may hand them back in any zone; the instants are unchanged.
func (r *Route) RestoreZone() error {
	if r.TimeZone == "" {
		r.TimeZone = ZoneName(r.StartAt)
		return nil
	}
	loc, err := LoadZone(r.TimeZone)
	if err != nil {
		return err
	}
	r.StartAt = r.StartAt.In(loc)
	r.HardEndAt = r.HardEndAt.In(loc)
	for i := range r.Stops {
		r.Stops[i].ArriveAt = r.Stops[i].ArriveAt.In(loc)
		r.Stops[i].DepartAt = r.Stops[i].DepartAt.In(loc)
	}
	return nil
}

// RouteTotals are the aggregates derived from a scheduled stop sequence.
type RouteTotals struct {
	TotalDistanceKm      float64
	TotalDurationMinutes float64
	TotalVisits          int
	TimeConstraintMet    bool
}

// Totals returns the route aggregates.
func (r *Route) Totals() RouteTotals {
	return RouteTotals{
		TotalDistanceKm:      r.TotalDistanceKm,
		TotalDurationMinutes: r.TotalDurationMinutes,
		TotalVisits:          r.TotalVisits,
		TimeConstraintMet:    r.TimeConstraintMet,
	}
}

// ApplyTotals copies aggregates onto the route.
func (r *Route) ApplyTotals(t RouteTotals) {
	r.TotalDistanceKm = t.TotalDistanceKm
	r.TotalDurationMinutes = t.TotalDurationMinutes
	r.TotalVisits = t.TotalVisits
	r.TimeConstraintMet = t.TimeConstraintMet
}
