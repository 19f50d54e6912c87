package dto

import "sales-route-service/internal/domain"

type GeocodeRequest struct {
	Addresses []string `json:"addresses"`
}

// GeocodeResult carries either a location or an error for one address.
type GeocodeResult struct {
	Address  string        `json:"address"`
	Location *domain.Point `json:"location,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
	Failed  int             `json:"failed"`
}
