package handlers

import (
	"net/http"
	"sales-route-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type ClientHandler struct {
	Planner *services.RoutePlanner
}

// Deactivate marks a client inactive. There is no way back.
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.Planner.DeactivateClient(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "deactivate client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
