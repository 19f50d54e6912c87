package dto

import "sales-route-service/internal/domain"

type CandidatesRequest struct {
	Start        domain.Point   `json:"start"`
	End          domain.Point   `json:"end"`
	Waypoints    []domain.Point `json:"waypoints"`
	RadiusMeters float64        `json:"radius_meters"`
	MaxResults   int            `json:"max_results"`
	ExcludeIDs   []string       `json:"exclude_ids"`
}

type CandidateResponse struct {
	ClientID       string        `json:"client_id"`
	Name           string        `json:"name"`
	Address        string        `json:"address"`
	Location       *domain.Point `json:"location"`
	DistanceMeters float64       `json:"distance_meters"`
	Score          float64       `json:"score"`
}

type ListCandidatesResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
}

func CandidatesFromDomain(cs []domain.CandidateClient) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, CandidateResponse{
			ClientID:       c.Client.ID,
			Name:           c.Client.Name,
			Address:        c.Client.Address,
			Location:       c.Client.Location,
			DistanceMeters: c.DistanceMeters,
			Score:          c.Score,
		})
	}
	return out
}
