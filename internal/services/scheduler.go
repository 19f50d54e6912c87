package services

import (
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/geo"
	"time"
)

// StopInput is one entry of an ordered stop skeleton.
//
// Leg is the travel from the previous stop as computed by the sequence
// optimizer; when nil a straight-line estimate for the route's travel mode
// is used. OpensAt/ClosesAt default to 09:00-17:00 for client stops.
type StopInput struct {
	Sequence      int
	ClientID      string
	Address       string
	Location      *domain.Point
	Type          domain.StopType
	VisitDuration time.Duration
	OpensAt       *domain.TimeOfDay
	ClosesAt      *domain.TimeOfDay
	Leg           *domain.Leg
}

type ScheduleRequest struct {
	Stops            []StopInput
	StartAt          time.Time
	HardEndAt        time.Time
	Lunch            *domain.LunchBreak
	Mode             domain.TravelMode
	DefaultVisit     time.Duration
	MaterializeBreak bool
}

// Exclusion records a client stop that could not count as a visit.
type Exclusion struct {
	ClientID string
	Order    int
	Reason   domain.ExclusionReason
}

// Schedule is the timed, partitioned stop sequence.
// Infeasibility is reported here (TimeConstraintMet, Exclusions), never as an error.
type Schedule struct {
	Stops                []domain.Stop
	TotalDistanceKm      float64
	TotalDurationMinutes float64
	ElapsedMinutes       float64
	TotalVisits          int
	TimeConstraintMet    bool
	ExcludedClientIDs    []string
	Exclusions           []Exclusion
}

// Totals returns the route aggregates of the schedule.
func (s *Schedule) Totals() domain.RouteTotals {
	return domain.RouteTotals{
		TotalDistanceKm:      s.TotalDistanceKm,
		TotalDurationMinutes: s.TotalDurationMinutes,
		TotalVisits:          s.TotalVisits,
		TimeConstraintMet:    s.TimeConstraintMet,
	}
}

// ScheduleRoute walks the stops strictly in order, computing arrival and
// departure times and deciding which client stops are visits.
//
// A client stop reached outside its opening hours, or whose visit would end
// after the hard end time, is marked not included: its arrival is recorded,
// departure equals arrival and no visit time is consumed, but the vehicle
// still travels through its location. The pass is single and greedy in the
// given order; choosing a different subset is left to the caller.
//
// When every visit fits but the final leg reaches the end after the hard
// end, no client is excluded; the end stop itself carries the
// exceeds_end_time reason and TimeConstraintMet is false.
func ScheduleRoute(req ScheduleRequest) (*Schedule, error) {
	if err := validateScheduleRequest(req); err != nil {
		return nil, err
	}

	in := req.Stops
	stops := make([]domain.Stop, 0, len(in)+1)

	now := req.StartAt
	pos := *in[0].Location
	stops = append(stops, domain.Stop{
		Address:  in[0].Address,
		Location: pos,
		Type:     domain.StopStart,
		ArriveAt: now,
		DepartAt: now,
		Included: true,
	})

	var (
		totalMeters  int
		totalSeconds int
		lunchTaken   bool
	)

	out := &Schedule{
		ExcludedClientIDs: []string{},
		Exclusions:        []Exclusion{},
	}

	for _, s := range in[1:] {
		loc := *s.Location

		leg := geo.EstimateLeg(pos, loc, req.Mode)
		if s.Leg != nil {
			leg = *s.Leg
		}
		totalMeters += leg.DistanceMeters
		totalSeconds += leg.DurationSeconds

		arrival := now.Add(leg.Duration())

		// The lunch break delays the arrival that falls inside its window.
		if req.Lunch != nil && !lunchTaken {
			lunchStart, lunchEnd := req.Lunch.Window(arrival)
			if !arrival.Before(lunchStart) && arrival.Before(lunchEnd) {
				lunchTaken = true

				if req.MaterializeBreak {
					stops = append(stops, domain.Stop{
						Address:       s.Address,
						Location:      loc,
						Type:          domain.StopBreak,
						ArriveAt:      arrival,
						DepartAt:      lunchEnd,
						TravelSeconds: leg.DurationSeconds,
						TravelMeters:  leg.DistanceMeters,
						VisitDuration: lunchEnd.Sub(arrival),
						Included:      !lunchEnd.After(req.HardEndAt),
					})
					leg = domain.Leg{}
				}
				arrival = lunchEnd
			}
		}

		st := domain.Stop{
			Address:       s.Address,
			Location:      loc,
			Type:          s.Type,
			ArriveAt:      arrival,
			DepartAt:      arrival,
			TravelSeconds: leg.DurationSeconds,
			TravelMeters:  leg.DistanceMeters,
		}

		switch s.Type {
		case domain.StopClient:
			id := s.ClientID
			st.ClientID = &id

			visit := s.VisitDuration
			if visit == 0 {
				visit = req.DefaultVisit
			}

			opens, closes := stopHours(s)
			switch {
			case arrival.Before(opens.On(arrival)) || arrival.After(closes.On(arrival)):
				st.Exclusion = domain.ExclusionOpeningHours
			case arrival.Add(visit).After(req.HardEndAt):
				st.Exclusion = domain.ExclusionEndTime
			default:
				st.Included = true
				st.VisitDuration = visit
				st.DepartAt = arrival.Add(visit)
				out.TotalVisits++
			}

			if !st.Included {
				out.Exclusions = append(out.Exclusions, Exclusion{
					ClientID: id,
					Order:    len(stops),
					Reason:   st.Exclusion,
				})
				out.ExcludedClientIDs = append(out.ExcludedClientIDs, id)
			}

		case domain.StopEnd:
			out.TimeConstraintMet = !arrival.After(req.HardEndAt)
			st.Included = out.TimeConstraintMet
			if !st.Included {
				st.Exclusion = domain.ExclusionEndTime
			}
		}

		stops = append(stops, st)
		now = st.DepartAt
		pos = loc
	}

	for i := range stops {
		stops[i].Order = i
	}

	out.Stops = stops
	out.TotalDistanceKm = float64(totalMeters) / 1000
	out.TotalDurationMinutes = float64(totalSeconds) / 60
	out.ElapsedMinutes = stops[len(stops)-1].ArriveAt.Sub(req.StartAt).Minutes()

	return out, nil
}

func stopHours(s StopInput) (domain.TimeOfDay, domain.TimeOfDay) {
	opens, closes := domain.DefaultOpensAt, domain.DefaultClosesAt
	if s.OpensAt != nil {
		opens = *s.OpensAt
	}
	if s.ClosesAt != nil {
		closes = *s.ClosesAt
	}
	return opens, closes
}

func validateScheduleRequest(req ScheduleRequest) error {
	n := len(req.Stops)
	if n == 0 {
		return domain.Invalid("stops", domain.ErrEmptyStops)
	}
	if n < 2 {
		return domain.Invalidf("stops", "a start and an end stop are required, got %d stop", n)
	}

	if req.Stops[0].Type != domain.StopStart {
		return domain.Invalidf("stops[0].type", "first stop must be %q, got %q", domain.StopStart, req.Stops[0].Type)
	}
	if req.Stops[n-1].Type != domain.StopEnd {
		return domain.Invalidf(fmt.Sprintf("stops[%d].type", n-1), "last stop must be %q, got %q", domain.StopEnd, req.Stops[n-1].Type)
	}

	if req.StartAt.IsZero() {
		return domain.Invalidf("start_at", "is required")
	}
	if !req.HardEndAt.After(req.StartAt) {
		return domain.Invalidf("hard_end_at", "must be after start_at")
	}

	if req.DefaultVisit < 0 {
		return domain.Invalidf("default_visit", "must not be negative")
	}

	if req.Lunch != nil && req.Lunch.Duration <= 0 {
		return domain.Invalidf("lunch.duration", "must be positive")
	}

	if _, err := domain.ParseTravelMode(string(req.Mode)); err != nil {
		return domain.Invalid("travel_mode", err)
	}

	for i, s := range req.Stops {
		field := fmt.Sprintf("stops[%d]", i)

		if i > 0 && s.Sequence <= req.Stops[i-1].Sequence {
			return domain.Invalidf(field+".sequence", "must be greater than %d, got %d", req.Stops[i-1].Sequence, s.Sequence)
		}

		if s.Location == nil {
			return domain.Invalidf(field+".location", "is required")
		}
		if err := s.Location.Validate(); err != nil {
			return domain.Invalid(field+".location", err)
		}

		if s.Leg != nil && (s.Leg.DistanceMeters < 0 || s.Leg.DurationSeconds < 0) {
			return domain.Invalidf(field+".leg", "must not be negative")
		}

		if i == 0 || i == n-1 {
			continue
		}

		if s.Type != domain.StopClient {
			return domain.Invalidf(field+".type", "intermediate stops must be %q, got %q", domain.StopClient, s.Type)
		}
		if s.ClientID == "" {
			return domain.Invalidf(field+".client_id", "is required")
		}

		if s.VisitDuration < 0 {
			return domain.Invalidf(field+".visit_duration", "must not be negative")
		}
		if s.VisitDuration == 0 && req.DefaultVisit == 0 {
			return domain.Invalidf(field+".visit_duration", "must be positive")
		}

		opens, closes := stopHours(s)
		if opens >= closes {
			return domain.Invalidf(field+".opening_hours", "opening %s must be before closing %s", opens, closes)
		}
	}

	return nil
}
