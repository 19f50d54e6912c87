package ports

import (
	"context"
	"sales-route-service/internal/domain"
	"time"
)

// OptimizeJob is one client visit to sequence.
type OptimizeJob struct {
	ID       string
	Location domain.Point
	Service  time.Duration
	OpensAt  domain.TimeOfDay
	ClosesAt domain.TimeOfDay
}

type OptimizeRequest struct {
	Start     domain.Point
	End       domain.Point
	StartAt   time.Time
	HardEndAt time.Time
	Lunch     *domain.LunchBreak
	Mode      domain.TravelMode
	Jobs      []OptimizeJob
}

// OptimizedSequence is the visit order returned by an optimizer.
//
// Legs has len(Order)+1 entries: Legs[i] is the travel into Order[i] and the
// last entry is the travel into the route end. A nil Legs means travel is
// unknown and must be estimated. Unassigned lists job ids the optimizer
// could not place; they are not part of Order.
type OptimizedSequence struct {
	Order      []string
	Legs       []domain.Leg
	Unassigned []string
	Metadata   domain.OptimizationMetadata
}

// SequenceOptimizer orders a single vehicle's visits.
type SequenceOptimizer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (*OptimizedSequence, error)
}
