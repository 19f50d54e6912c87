package services

import (
	"cmp"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/geo"
	"slices"
)

// SelectCandidates returns the active clients within radiusMeters of the
// corridor, best score first.
//
// Clients in excludeIDs (already committed to the route) and clients without
// coordinates are skipped. Ordering is score desc, distance asc, id asc, so
// identical inputs always produce identical output. An empty pool or no
// match yields an empty slice, not an error.
func SelectCandidates(
	corridor geo.Corridor,
	pool []domain.Client,
	radiusMeters float64,
	maxResults int,
	excludeIDs map[string]struct{},
) ([]domain.CandidateClient, error) {
	if _, err := geo.ProximityScore(0, radiusMeters); err != nil {
		return nil, domain.Invalid("radius_meters", err)
	}

	if maxResults <= 0 {
		return nil, domain.Invalidf("max_results", "must be positive, got %d", maxResults)
	}

	if err := corridor.Validate(); err != nil {
		return nil, domain.Invalid("corridor", err)
	}

	out := make([]domain.CandidateClient, 0)
	for _, c := range pool {
		if !c.Active || c.Location == nil {
			continue
		}

		if _, ok := excludeIDs[c.ID]; ok {
			continue
		}

		d, err := corridor.DistanceTo(*c.Location)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) {
				return nil, domain.Invalid(fmt.Sprintf("pool[%s].location", c.ID), err)
			}
			return nil, fmt.Errorf("select candidates: client %q: %w", c.ID, err)
		}

		// Hard cutoff: a zero score at exactly the radius is still returned.
		if d > radiusMeters {
			continue
		}

		score, err := geo.ProximityScore(d, radiusMeters)
		if err != nil {
			return nil, fmt.Errorf("select candidates: score client %q: %w", c.ID, err)
		}

		out = append(out, domain.CandidateClient{
			Client:         c,
			DistanceMeters: d,
			Score:          score,
		})
	}

	slices.SortStableFunc(out, func(a, b domain.CandidateClient) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.Client.ID, b.Client.ID)
	})

	if len(out) > maxResults {
		out = out[:maxResults]
	}

	return out, nil
}
