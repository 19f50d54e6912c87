package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/ports"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultMatrixConcurrency = 5

// NearestNeighborOptimizer sequences jobs greedily by travel duration.
//
// The algorithm minimizes immediate travel duration at each step and ignores
// time windows. It does not attempt global optimization; it exists so a
// route can still be ordered sensibly when the external optimizer is down.
// Ties are broken by job id so the output is deterministic.
type NearestNeighborOptimizer struct {
	Provider    ports.DistanceProvider
	Concurrency int
}

func (o *NearestNeighborOptimizer) Optimize(
	ctx context.Context,
	req ports.OptimizeRequest,
) (*ports.OptimizedSequence, error) {
	if o.Provider == nil {
		return nil, errors.New("nearest neighbor: provider is nil")
	}
	if err := checkJobIDs(req.Jobs); err != nil {
		return nil, fmt.Errorf("nearest neighbor: %w", err)
	}

	started := time.Now()

	matrix, err := o.pairwise(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor: %w", err)
	}

	remaining := make(map[string]ports.OptimizeJob, len(req.Jobs))
	for _, j := range req.Jobs {
		remaining[j.ID] = j
	}

	current := req.Start
	order := make([]string, 0, len(req.Jobs))
	legs := make([]domain.Leg, 0, len(req.Jobs)+1)

	for len(remaining) > 0 {
		var (
			best    string
			bestLeg domain.Leg
		)
		minDuration := math.MaxInt

		// Select next stop by minimum travel duration (greedy step).
		for id, j := range remaining {
			leg := matrix.get(current, j.Location)
			if leg.DurationSeconds < minDuration || (leg.DurationSeconds == minDuration && id < best) {
				minDuration = leg.DurationSeconds
				best = id
				bestLeg = leg
			}
		}

		order = append(order, best)
		legs = append(legs, bestLeg)
		current = remaining[best].Location
		delete(remaining, best)
	}

	legs = append(legs, matrix.get(current, req.End))

	return &ports.OptimizedSequence{
		Order:      order,
		Legs:       legs,
		Unassigned: []string{},
		Metadata: domain.Optimized(domain.OptimizedMetadata{
			Provider:        "nearest_neighbor",
			Profile:         string(req.Mode),
			ComputingTimeMs: int(time.Since(started).Milliseconds()),
		}),
	}, nil
}

type legMatrix map[string]map[string]domain.Leg

func (m legMatrix) get(from, to domain.Point) domain.Leg {
	if from == to {
		return domain.Leg{}
	}
	return m[from.Key()][to.Key()]
}

// pairwise fetches start -> jobs and every job -> other jobs + end, one
// origin row per goroutine.
func (o *NearestNeighborOptimizer) pairwise(ctx context.Context, req ports.OptimizeRequest) (legMatrix, error) {
	origins := make([]domain.Point, 0, len(req.Jobs)+1)
	origins = append(origins, req.Start)
	for _, j := range req.Jobs {
		origins = append(origins, j.Location)
	}

	limit := o.Concurrency
	if limit <= 0 {
		limit = defaultMatrixConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	matrix := make(legMatrix, len(origins))
	mp, hasMatrix := o.Provider.(ports.DistanceMatrixProvider)

	seen := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin := origin
		if _, ok := seen[origin.Key()]; ok {
			continue
		}
		seen[origin.Key()] = struct{}{}

		targets := make([]domain.Point, 0, len(req.Jobs)+1)
		for _, j := range req.Jobs {
			if j.Location != origin {
				targets = append(targets, j.Location)
			}
		}
		if req.End != origin {
			targets = append(targets, req.End)
		}
		if len(targets) == 0 {
			continue
		}

		g.Go(func() error {
			row, err := o.row(gctx, req.Mode, origin, targets, mp, hasMatrix)
			if err != nil {
				return fmt.Errorf("distances from %s: %w", origin.Key(), err)
			}

			for _, t := range targets {
				if _, ok := row[t.Key()]; !ok {
					return fmt.Errorf("missing distance from %s to %s", origin.Key(), t.Key())
				}
			}

			mu.Lock()
			matrix[origin.Key()] = row
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}

func (o *NearestNeighborOptimizer) row(
	ctx context.Context,
	mode domain.TravelMode,
	origin domain.Point,
	targets []domain.Point,
	mp ports.DistanceMatrixProvider,
	hasMatrix bool,
) (map[string]domain.Leg, error) {
	// Prefer batched lookups when supported to reduce external API calls.
	if hasMatrix {
		return mp.GetDistances(ctx, mode, origin, targets)
	}

	out := make(map[string]domain.Leg, len(targets))
	for _, t := range targets {
		leg, err := o.Provider.GetDistance(ctx, mode, origin, t)
		if err != nil {
			return nil, err
		}
		out[t.Key()] = leg
	}
	return out, nil
}

func checkJobIDs(jobs []ports.OptimizeJob) error {
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if j.ID == "" {
			return errors.New("job id must be non-empty")
		}
		if _, ok := seen[j.ID]; ok {
			return fmt.Errorf("duplicate job id %q", j.ID)
		}
		seen[j.ID] = struct{}{}
	}
	return nil
}
