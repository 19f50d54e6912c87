package services

import (
	"context"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/ports"
)

// AsGivenOptimizer keeps the jobs in request order.
//
// With a Provider, legs are looked up for each consecutive pair. Without
// one, Legs is left nil and the scheduler estimates travel from straight-line
// distance. The nil-provider form never fails.
type AsGivenOptimizer struct {
	Provider ports.DistanceProvider
	// Reason is reported in the simple_order metadata.
	Reason string
}

func (o *AsGivenOptimizer) Optimize(
	ctx context.Context,
	req ports.OptimizeRequest,
) (*ports.OptimizedSequence, error) {
	if err := checkJobIDs(req.Jobs); err != nil {
		return nil, fmt.Errorf("as given: %w", err)
	}

	order := make([]string, 0, len(req.Jobs))
	for _, j := range req.Jobs {
		order = append(order, j.ID)
	}

	reason := o.Reason
	if reason == "" {
		reason = "user_order"
	}

	seq := &ports.OptimizedSequence{
		Order:      order,
		Unassigned: []string{},
		Metadata:   domain.SimpleOrder(reason),
	}

	if o.Provider == nil {
		return seq, nil
	}

	legs := make([]domain.Leg, 0, len(req.Jobs)+1)
	prev := req.Start
	next := func(to domain.Point) error {
		leg, err := o.Provider.GetDistance(ctx, req.Mode, prev, to)
		if err != nil {
			return fmt.Errorf("as given: distance %s -> %s: %w", prev.Key(), to.Key(), err)
		}
		legs = append(legs, leg)
		prev = to
		return nil
	}

	for _, j := range req.Jobs {
		if err := next(j.Location); err != nil {
			return nil, err
		}
	}
	if err := next(req.End); err != nil {
		return nil, err
	}

	seq.Legs = legs
	return seq, nil
}
