package handlers

import (
	"net/http"
	"sales-route-service/internal/api/dto"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/services"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type RouteHandler struct {
	Planner *services.RoutePlanner
}

// Create plans, schedules and stores a new route.
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req dto.CreateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Planner.Plan(r.Context(), services.PlanRequest{
		OwnerID:          owner,
		Name:             req.Name,
		Start:            req.Start.ToDomain(),
		End:              req.End.ToDomain(),
		Waypoints:        req.Waypoints,
		StartAt:          req.StartAt,
		HardEndAt:        req.HardEndAt,
		Lunch:            req.Lunch.ToDomain(),
		Mode:             domain.TravelMode(req.TravelMode),
		ClientIDs:        req.ClientIDs,
		VisitDuration:    time.Duration(req.VisitMinutes) * time.Minute,
		AutoDiscover:     req.AutoDiscover,
		RadiusMeters:     req.RadiusMeters,
		MaxCandidates:    req.MaxCandidates,
		Optimize:         req.Optimize,
		TrimToFit:        req.TrimToFit,
		MaterializeBreak: req.MaterializeBreak,
	})
	if err != nil {
		writeServiceError(w, r, "plan route", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, planResponse(res))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	route, err := h.Planner.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RouteFromDomain(route))
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "must be a positive integer", "field": "limit"})
			return
		}
		limit = n
	}

	routes, err := h.Planner.List(r.Context(), owner, limit)
	if err != nil {
		writeServiceError(w, r, "list routes", err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for i := range routes {
		res.Routes = append(res.Routes, dto.RouteFromDomain(&routes[i]))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Recalculate re-times a stored route in its stored order.
func (h *RouteHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req dto.RecalculateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Planner.Recalculate(r.Context(), services.RecalculateRequest{
		OwnerID:          owner,
		RouteID:          chi.URLParam(r, "id"),
		StartAt:          req.StartAt,
		HardEndAt:        req.HardEndAt,
		Lunch:            req.Lunch.ToDomain(),
		ClearLunch:       req.ClearLunch,
		VisitDuration:    time.Duration(req.VisitMinutes) * time.Minute,
		MaterializeBreak: req.MaterializeBreak,
	})
	if err != nil {
		writeServiceError(w, r, "recalculate route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, planResponse(res))
}

func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.Planner.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete route", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func planResponse(res *services.PlanResult) dto.PlanResponse {
	return dto.PlanResponse{
		Route:             dto.RouteFromDomain(res.Route),
		Candidates:        dto.CandidatesFromDomain(res.Candidates),
		Dropped:           res.Dropped,
		ExcludedClientIDs: res.Schedule.ExcludedClientIDs,
	}
}
