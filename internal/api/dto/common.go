package dto

import (
	"sales-route-service/internal/domain"
	"time"
)

type Place struct {
	Address  string       `json:"address"`
	Location domain.Point `json:"location"`
}

func (p Place) ToDomain() domain.Place {
	return domain.Place{Address: p.Address, Location: p.Location}
}

func PlaceFromDomain(p domain.Place) Place {
	return Place{Address: p.Address, Location: p.Location}
}

type LunchBreak struct {
	Start           domain.TimeOfDay `json:"start"`
	DurationMinutes int              `json:"duration_minutes"`
}

// ToDomain returns nil for a nil break.
func (l *LunchBreak) ToDomain() *domain.LunchBreak {
	if l == nil {
		return nil
	}
	return &domain.LunchBreak{
		Start:    l.Start,
		Duration: time.Duration(l.DurationMinutes) * time.Minute,
	}
}

func LunchFromDomain(l *domain.LunchBreak) *LunchBreak {
	if l == nil {
		return nil
	}
	return &LunchBreak{Start: l.Start, DurationMinutes: int(l.Duration / time.Minute)}
}

type StopResponse struct {
	ID            string                 `json:"id,omitempty"`
	Order         int                    `json:"order"`
	Type          domain.StopType        `json:"type"`
	ClientID      *string                `json:"client_id,omitempty"`
	Address       string                 `json:"address"`
	Location      domain.Point           `json:"location"`
	ArriveAt      time.Time              `json:"arrive_at"`
	DepartAt      time.Time              `json:"depart_at"`
	TravelSeconds int                    `json:"travel_seconds"`
	TravelMeters  int                    `json:"travel_meters"`
	VisitMinutes  float64                `json:"visit_minutes"`
	Included      bool                   `json:"included"`
	Exclusion     domain.ExclusionReason `json:"exclusion,omitempty"`
}

func StopsFromDomain(stops []domain.Stop) []StopResponse {
	out := make([]StopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, StopResponse{
			ID:            s.ID,
			Order:         s.Order,
			Type:          s.Type,
			ClientID:      s.ClientID,
			Address:       s.Address,
			Location:      s.Location,
			ArriveAt:      s.ArriveAt,
			DepartAt:      s.DepartAt,
			TravelSeconds: s.TravelSeconds,
			TravelMeters:  s.TravelMeters,
			VisitMinutes:  s.VisitDuration.Minutes(),
			Included:      s.Included,
			Exclusion:     s.Exclusion,
		})
	}
	return out
}
