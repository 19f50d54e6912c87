package handlers

import (
	"net/http"
	"sales-route-service/internal/api/dto"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/services"
	"time"
)

// ScheduleHandler exposes the pure scheduler over caller-supplied stops.
// Nothing is persisted.
type ScheduleHandler struct {
	DefaultMode  domain.TravelMode
	DefaultVisit time.Duration
}

func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mode := domain.TravelMode(req.TravelMode)
	if mode == "" {
		mode = h.DefaultMode
	}
	parsed, err := domain.ParseTravelMode(string(mode))
	if err != nil {
		writeServiceError(w, r, "schedule", domain.Invalid("travel_mode", err))
		return
	}

	visit := time.Duration(req.DefaultVisitMinutes) * time.Minute
	if visit == 0 {
		visit = h.DefaultVisit
	}

	sched, err := services.ScheduleRoute(services.ScheduleRequest{
		Stops:            scheduleInputs(req.Stops),
		StartAt:          req.StartAt,
		HardEndAt:        req.HardEndAt,
		Lunch:            req.Lunch.ToDomain(),
		Mode:             parsed,
		DefaultVisit:     visit,
		MaterializeBreak: req.MaterializeBreak,
	})
	if err != nil {
		writeServiceError(w, r, "schedule", err)
		return
	}

	res := dto.ScheduleResponse{
		Stops:                dto.StopsFromDomain(sched.Stops),
		TotalDistanceKm:      sched.TotalDistanceKm,
		TotalDurationMinutes: sched.TotalDurationMinutes,
		ElapsedMinutes:       sched.ElapsedMinutes,
		TotalVisits:          sched.TotalVisits,
		TimeConstraintMet:    sched.TimeConstraintMet,
		ExcludedClientIDs:    sched.ExcludedClientIDs,
		Exclusions:           make([]dto.ExclusionResponse, 0, len(sched.Exclusions)),
	}
	for _, e := range sched.Exclusions {
		res.Exclusions = append(res.Exclusions, dto.ExclusionResponse{ClientID: e.ClientID, Order: e.Order, Reason: e.Reason})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func scheduleInputs(in []dto.ScheduleStopRequest) []services.StopInput {
	out := make([]services.StopInput, 0, len(in))
	for i, s := range in {
		typ := s.Type
		if typ == "" {
			switch i {
			case 0:
				typ = domain.StopStart
			case len(in) - 1:
				typ = domain.StopEnd
			default:
				typ = domain.StopClient
			}
		}

		stop := services.StopInput{
			Sequence:      i,
			ClientID:      s.ClientID,
			Address:       s.Address,
			Location:      s.Location,
			Type:          typ,
			VisitDuration: time.Duration(s.VisitMinutes) * time.Minute,
			OpensAt:       s.OpensAt,
			ClosesAt:      s.ClosesAt,
		}
		if s.Leg != nil {
			stop.Leg = &domain.Leg{DistanceMeters: s.Leg.DistanceMeters, DurationSeconds: s.Leg.DurationSeconds}
		}
		out = append(out, stop)
	}
	return out
}
