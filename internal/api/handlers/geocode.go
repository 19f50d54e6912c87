package handlers

import (
	"net/http"
	"sales-route-service/internal/api/dto"
	"sales-route-service/internal/ports"
	"strconv"
)

const maxGeocodeBatch = 100

type GeocodeHandler struct {
	// Geocoder is nil when no geocoding provider is configured.
	Geocoder ports.Geocoder
}

// Geocode resolves a batch of addresses. One failing address does not
// fail the request; its error is reported in its own result.
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(w, r); !ok {
		return
	}
	if h.Geocoder == nil {
		writeError(w, r, http.StatusServiceUnavailable, "geocoding is not configured")
		return
	}

	var req dto.GeocodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Addresses) == 0 || len(req.Addresses) > maxGeocodeBatch {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{
			"error": "must contain between 1 and " + strconv.Itoa(maxGeocodeBatch) + " addresses",
			"field": "addresses",
		})
		return
	}

	results := h.Geocoder.GeocodeMany(r.Context(), req.Addresses)

	res := dto.GeocodeResponse{Results: make([]dto.GeocodeResult, 0, len(results))}
	for _, g := range results {
		item := dto.GeocodeResult{Address: g.Address, Location: g.Location}
		if g.Err != nil {
			item.Error = g.Err.Error()
			res.Failed++
		}
		res.Results = append(res.Results, item)
	}
	writeJSON(w, r, http.StatusOK, res)
}
