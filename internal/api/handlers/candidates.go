package handlers

import (
	"net/http"
	"sales-route-service/internal/api/dto"
	"sales-route-service/internal/services"
)

type CandidateHandler struct {
	Planner *services.RoutePlanner
}

// Find returns the owner's active clients closest to the travel corridor.
func (h *CandidateHandler) Find(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req dto.CandidatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	found, err := h.Planner.FindCandidates(r.Context(), services.CandidateRequest{
		OwnerID:      owner,
		Start:        req.Start,
		End:          req.End,
		Waypoints:    req.Waypoints,
		RadiusMeters: req.RadiusMeters,
		MaxResults:   req.MaxResults,
		ExcludeIDs:   req.ExcludeIDs,
	})
	if err != nil {
		writeServiceError(w, r, "find candidates", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListCandidatesResponse{Candidates: dto.CandidatesFromDomain(found)})
}
