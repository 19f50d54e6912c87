package services

import (
	"context"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/geo"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
	"slices"
	"time"
)

// OptimizerStep is one named entry of the optimizer fallback chain.
type OptimizerStep struct {
	Name      string
	Optimizer ports.SequenceOptimizer
}

// PlannerDefaults fill request fields left at their zero value.
type PlannerDefaults struct {
	RadiusMeters  float64
	MaxCandidates int
	Visit         time.Duration
	Mode          domain.TravelMode
}

// RoutePlanner orchestrates candidate selection, sequencing, scheduling and
// persistence. The core it calls into is pure; all I/O happens here or in
// the ports.
type RoutePlanner struct {
	Clients ports.ClientRepository
	Routes  ports.RouteRepository
	// Chain is tried in order when a request asks for optimization.
	Chain []OptimizerStep
	// Distances supplies legs for as-given sequences. Nil means estimate.
	Distances ports.DistanceProvider
	Defaults  PlannerDefaults
	Now       func() time.Time
}

type PlanRequest struct {
	OwnerID   string
	Name      string
	Start     domain.Place
	End       domain.Place
	Waypoints []domain.Point
	StartAt   time.Time
	HardEndAt time.Time
	Lunch     *domain.LunchBreak
	Mode      domain.TravelMode
	// ClientIDs are manual picks, kept in this order unless Optimize is set.
	ClientIDs     []string
	VisitDuration time.Duration

	AutoDiscover  bool
	RadiusMeters  float64
	MaxCandidates int

	Optimize         bool
	TrimToFit        bool
	MaterializeBreak bool
}

type PlanResult struct {
	Route      *domain.Route
	Schedule   *Schedule
	Candidates []domain.CandidateClient
	// Dropped lists auto-discovered clients removed to meet the hard end.
	Dropped []string
}

type CandidateRequest struct {
	OwnerID      string
	Start        domain.Point
	End          domain.Point
	Waypoints    []domain.Point
	RadiusMeters float64
	MaxResults   int
	ExcludeIDs   []string
}

// FindCandidates runs corridor selection over the owner's active clients.
func (p *RoutePlanner) FindCandidates(ctx context.Context, req CandidateRequest) (_ []domain.CandidateClient, err error) {
	defer obs.Time(ctx, "planner.FindCandidates")(&err)

	if req.OwnerID == "" {
		return nil, domain.Invalidf("owner_id", "is required")
	}

	radius := req.RadiusMeters
	if radius == 0 {
		radius = p.Defaults.RadiusMeters
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = p.Defaults.MaxCandidates
	}

	pool, err := p.Clients.ListActiveClients(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("find candidates: list clients: %w", err)
	}

	exclude := make(map[string]struct{}, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		exclude[id] = struct{}{}
	}

	corridor := geo.NewCorridor(req.Start, req.End, req.Waypoints...)
	return SelectCandidates(corridor, pool, radius, maxResults, exclude)
}

// Plan builds, schedules and persists a new route.
func (p *RoutePlanner) Plan(ctx context.Context, req PlanRequest) (_ *PlanResult, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	if err := p.normalize(&req); err != nil {
		return nil, err
	}

	manual, err := p.loadManual(ctx, req.OwnerID, req.ClientIDs)
	if err != nil {
		return nil, err
	}

	var candidates []domain.CandidateClient
	if req.AutoDiscover {
		exclude := make([]string, 0, len(manual))
		for _, c := range manual {
			exclude = append(exclude, c.ID)
		}

		candidates, err = p.FindCandidates(ctx, CandidateRequest{
			OwnerID:      req.OwnerID,
			Start:        req.Start.Location,
			End:          req.End.Location,
			Waypoints:    req.Waypoints,
			RadiusMeters: req.RadiusMeters,
			MaxResults:   req.MaxCandidates,
			ExcludeIDs:   exclude,
		})
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
	}

	auto := make([]domain.CandidateClient, len(candidates))
	copy(auto, candidates)

	var (
		sched   *Schedule
		seq     *ports.OptimizedSequence
		dropped []string
	)

	for {
		clients := make([]domain.Client, 0, len(manual)+len(auto))
		clients = append(clients, manual...)
		for _, c := range auto {
			clients = append(clients, c.Client)
		}

		seq, sched, err = p.sequenceAndSchedule(ctx, req, clients)
		if err != nil {
			return nil, err
		}

		if sched.TimeConstraintMet || !req.TrimToFit || len(auto) == 0 {
			break
		}

		// auto is kept in score order; the last entry is the weakest prospect.
		weakest := auto[len(auto)-1]
		auto = auto[:len(auto)-1]
		dropped = append(dropped, weakest.Client.ID)
		logging.L().Infow("dropping prospect to meet hard end",
			"req_id", obs.RequestID(ctx), "client_id", weakest.Client.ID, "score", weakest.Score)
	}

	route := &domain.Route{
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		Start:        req.Start,
		End:          req.End,
		StartAt:      req.StartAt,
		HardEndAt:    req.HardEndAt,
		TimeZone:     domain.ZoneName(req.StartAt),
		Lunch:        req.Lunch,
		TravelMode:   req.Mode,
		Optimization: seq.Metadata,
		Stops:        sched.Stops,
		CreatedAt:    p.now(),
	}
	route.ApplyTotals(sched.Totals())

	if err := p.Routes.SaveRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("plan: save route: %w", err)
	}

	if dropped == nil {
		dropped = []string{}
	}
	if candidates == nil {
		candidates = []domain.CandidateClient{}
	}

	return &PlanResult{
		Route:      route,
		Schedule:   sched,
		Candidates: candidates,
		Dropped:    dropped,
	}, nil
}

func (p *RoutePlanner) normalize(req *PlanRequest) error {
	if req.OwnerID == "" {
		return domain.Invalidf("owner_id", "is required")
	}
	if err := req.Start.Location.Validate(); err != nil {
		return domain.Invalid("start.location", err)
	}
	if err := req.End.Location.Validate(); err != nil {
		return domain.Invalid("end.location", err)
	}
	for i, w := range req.Waypoints {
		if err := w.Validate(); err != nil {
			return domain.Invalid(fmt.Sprintf("waypoints[%d]", i), err)
		}
	}

	if req.Mode == "" {
		req.Mode = p.Defaults.Mode
	}
	mode, err := domain.ParseTravelMode(string(req.Mode))
	if err != nil {
		return domain.Invalid("travel_mode", err)
	}
	req.Mode = mode

	if req.VisitDuration == 0 {
		req.VisitDuration = p.Defaults.Visit
	}
	if req.VisitDuration <= 0 {
		return domain.Invalidf("visit_duration", "must be positive")
	}

	if req.Name == "" {
		req.Name = "Route " + req.StartAt.Format("2006-01-02")
	}
	return nil
}

// loadManual returns the owner's picked clients in request order.
func (p *RoutePlanner) loadManual(ctx context.Context, ownerID string, ids []string) ([]domain.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, domain.Invalidf("client_ids", "duplicate client %q", id)
		}
		seen[id] = struct{}{}
	}

	found, err := p.Clients.GetClients(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("plan: load clients: %w", err)
	}

	byID := make(map[string]domain.Client, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]domain.Client, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		switch {
		case !ok:
			return nil, domain.Invalid("client_ids", fmt.Errorf("client %q: %w", id, ports.ErrNotFound))
		case !c.Active:
			return nil, domain.Invalidf("client_ids", "client %q is deactivated", id)
		case c.Location == nil:
			return nil, domain.Invalidf("client_ids", "client %q has no coordinates", id)
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *RoutePlanner) sequenceAndSchedule(
	ctx context.Context,
	req PlanRequest,
	clients []domain.Client,
) (*ports.OptimizedSequence, *Schedule, error) {
	jobs := make([]ports.OptimizeJob, 0, len(clients))
	byID := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		opens, closes := c.Hours()
		jobs = append(jobs, ports.OptimizeJob{
			ID:       c.ID,
			Location: *c.Location,
			Service:  req.VisitDuration,
			OpensAt:  opens,
			ClosesAt: closes,
		})
		byID[c.ID] = c
	}

	optReq := ports.OptimizeRequest{
		Start:     req.Start.Location,
		End:       req.End.Location,
		StartAt:   req.StartAt,
		HardEndAt: req.HardEndAt,
		Lunch:     req.Lunch,
		Mode:      req.Mode,
		Jobs:      jobs,
	}

	seq, err := p.sequence(ctx, optReq, req.Optimize)
	if err != nil {
		return nil, nil, err
	}

	stops := buildStopInputs(req, seq, byID)

	sched, err := ScheduleRoute(ScheduleRequest{
		Stops:            stops,
		StartAt:          req.StartAt,
		HardEndAt:        req.HardEndAt,
		Lunch:            req.Lunch,
		Mode:             req.Mode,
		DefaultVisit:     req.VisitDuration,
		MaterializeBreak: req.MaterializeBreak,
	})
	if err != nil {
		return nil, nil, err
	}

	observeSchedule(sched)
	return seq, sched, nil
}

// sequence runs the optimizer chain. Each failure is logged and the next
// step tried; the as-given order without legs is the last resort and cannot
// fail. A cancelled context is returned as is.
func (p *RoutePlanner) sequence(
	ctx context.Context,
	req ports.OptimizeRequest,
	optimize bool,
) (*ports.OptimizedSequence, error) {
	if !optimize {
		seq, err := (&AsGivenOptimizer{Provider: p.Distances}).Optimize(ctx, req)
		if err == nil {
			metrics.OptimizerRuns.WithLabelValues("as_given", "ok").Inc()
			return seq, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.OptimizerRuns.WithLabelValues("as_given", "error").Inc()
		logging.L().Warnw("as-given legs failed, estimating travel", "req_id", obs.RequestID(ctx), "err", err)
		return (&AsGivenOptimizer{}).Optimize(ctx, req)
	}

	for _, step := range p.Chain {
		seq, err := step.Optimizer.Optimize(ctx, req)
		if err == nil {
			metrics.OptimizerRuns.WithLabelValues(step.Name, "ok").Inc()
			return seq, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}

		metrics.OptimizerRuns.WithLabelValues(step.Name, "error").Inc()
		logging.L().Warnw("optimizer failed, falling back",
			"req_id", obs.RequestID(ctx), "optimizer", step.Name, "err", err)
	}

	return (&AsGivenOptimizer{Reason: "optimizer_unavailable"}).Optimize(ctx, req)
}

// buildStopInputs lays out start -> ordered jobs -> unassigned jobs -> end.
// Unassigned jobs and the leg after them have no optimizer leg.
func buildStopInputs(req PlanRequest, seq *ports.OptimizedSequence, byID map[string]domain.Client) []StopInput {
	ids := make([]string, 0, len(seq.Order)+len(seq.Unassigned))
	ids = append(ids, seq.Order...)
	ids = append(ids, seq.Unassigned...)

	haveLegs := len(seq.Legs) == len(seq.Order)+1

	stops := make([]StopInput, 0, len(ids)+2)
	start := req.Start.Location
	stops = append(stops, StopInput{
		Sequence: 0,
		Address:  req.Start.Address,
		Location: &start,
		Type:     domain.StopStart,
	})

	for i, id := range ids {
		c := byID[id]
		opens, closes := c.Hours()
		loc := *c.Location

		in := StopInput{
			Sequence:      i + 1,
			ClientID:      c.ID,
			Address:       c.Address,
			Location:      &loc,
			Type:          domain.StopClient,
			VisitDuration: req.VisitDuration,
			OpensAt:       &opens,
			ClosesAt:      &closes,
		}
		if haveLegs && i < len(seq.Order) {
			leg := seq.Legs[i]
			in.Leg = &leg
		}
		stops = append(stops, in)
	}

	end := req.End.Location
	last := StopInput{
		Sequence: len(ids) + 1,
		Address:  req.End.Address,
		Location: &end,
		Type:     domain.StopEnd,
	}
	if haveLegs && len(seq.Unassigned) == 0 {
		leg := seq.Legs[len(seq.Order)]
		last.Leg = &leg
	}
	return append(stops, last)
}

type RecalculateRequest struct {
	OwnerID   string
	RouteID   string
	StartAt   *time.Time
	HardEndAt *time.Time
	// Lunch replaces the route's lunch break when set; ClearLunch removes it.
	Lunch            *domain.LunchBreak
	ClearLunch       bool
	VisitDuration    time.Duration
	MaterializeBreak bool
}

// Recalculate re-times an existing route in its stored order and replaces
// its whole stop set.
func (p *RoutePlanner) Recalculate(ctx context.Context, req RecalculateRequest) (_ *PlanResult, err error) {
	defer obs.Time(ctx, "planner.Recalculate")(&err)

	if req.OwnerID == "" {
		return nil, domain.Invalidf("owner_id", "is required")
	}

	route, err := p.Routes.GetRoute(ctx, req.OwnerID, req.RouteID)
	if err != nil {
		return nil, fmt.Errorf("recalculate: %w", err)
	}

	if err := route.RestoreZone(); err != nil {
		return nil, fmt.Errorf("recalculate: %w", err)
	}

	// A new start time also sets the planning zone.
	if req.StartAt != nil {
		route.StartAt = *req.StartAt
		route.TimeZone = domain.ZoneName(*req.StartAt)
	}
	if req.HardEndAt != nil {
		route.HardEndAt = *req.HardEndAt
	}
	if err := route.RestoreZone(); err != nil {
		return nil, fmt.Errorf("recalculate: %w", err)
	}
	switch {
	case req.ClearLunch:
		route.Lunch = nil
	case req.Lunch != nil:
		route.Lunch = req.Lunch
	}

	visit := req.VisitDuration
	if visit == 0 {
		visit = p.Defaults.Visit
	}

	clientIDs := make([]string, 0, len(route.Stops))
	for _, s := range route.Stops {
		if s.ClientID != nil {
			clientIDs = append(clientIDs, *s.ClientID)
		}
	}

	clients, err := p.Clients.GetClients(ctx, req.OwnerID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("recalculate: load clients: %w", err)
	}
	byID := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}

	inputs := restoreStopInputs(route.Stops, byID, visit)

	sched, err := ScheduleRoute(ScheduleRequest{
		Stops:            inputs,
		StartAt:          route.StartAt,
		HardEndAt:        route.HardEndAt,
		Lunch:            route.Lunch,
		Mode:             route.TravelMode,
		DefaultVisit:     visit,
		MaterializeBreak: req.MaterializeBreak,
	})
	if err != nil {
		return nil, err
	}
	observeSchedule(sched)

	route.Stops = sched.Stops
	route.ApplyTotals(sched.Totals())

	if err := p.Routes.ReplaceStops(ctx, route); err != nil {
		return nil, fmt.Errorf("recalculate: replace stops: %w", err)
	}

	return &PlanResult{Route: route, Schedule: sched, Candidates: []domain.CandidateClient{}, Dropped: []string{}}, nil
}

// restoreStopInputs turns stored stops back into scheduler input. Break
// stops are dropped and their travel is carried onto the following stop.
func restoreStopInputs(stored []domain.Stop, clients map[string]domain.Client, visit time.Duration) []StopInput {
	stops := slices.Clone(stored)
	slices.SortFunc(stops, func(a, b domain.Stop) int { return a.Order - b.Order })

	out := make([]StopInput, 0, len(stops))
	var carry domain.Leg

	for _, s := range stops {
		if s.Type == domain.StopBreak {
			carry.DistanceMeters += s.TravelMeters
			carry.DurationSeconds += s.TravelSeconds
			continue
		}

		loc := s.Location
		in := StopInput{
			Sequence: len(out),
			Address:  s.Address,
			Location: &loc,
			Type:     s.Type,
		}

		if s.Type != domain.StopStart {
			leg := domain.Leg{
				DistanceMeters:  s.TravelMeters + carry.DistanceMeters,
				DurationSeconds: s.TravelSeconds + carry.DurationSeconds,
			}
			in.Leg = &leg
			carry = domain.Leg{}
		}

		if s.Type == domain.StopClient && s.ClientID != nil {
			in.ClientID = *s.ClientID
			in.VisitDuration = visit
			if s.Included && s.VisitDuration > 0 {
				in.VisitDuration = s.VisitDuration
			}
			if c, ok := clients[*s.ClientID]; ok {
				opens, closes := c.Hours()
				in.OpensAt, in.ClosesAt = &opens, &closes
			}
		}

		out = append(out, in)
	}
	return out
}

// Get returns a stored route.
func (p *RoutePlanner) Get(ctx context.Context, ownerID, id string) (*domain.Route, error) {
	route, err := p.Routes.GetRoute(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	return route, nil
}

// Delete removes a route and its stops.
func (p *RoutePlanner) Delete(ctx context.Context, ownerID, id string) error {
	if err := p.Routes.DeleteRoute(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	return nil
}

// List returns the owner's most recent routes without stops.
func (p *RoutePlanner) List(ctx context.Context, ownerID string, limit int) ([]domain.Route, error) {
	if ownerID == "" {
		return nil, domain.Invalidf("owner_id", "is required")
	}
	routes, err := p.Routes.ListRoutes(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// DeactivateClient retires a client for good. It stops appearing as a
// candidate; stored routes keep referencing it.
func (p *RoutePlanner) DeactivateClient(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return domain.Invalidf("owner_id", "is required")
	}
	if id == "" {
		return domain.Invalidf("client_id", "is required")
	}
	if err := p.Clients.DeactivateClient(ctx, ownerID, id); err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	return nil
}

func (p *RoutePlanner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func observeSchedule(s *Schedule) {
	reasons := make([]string, 0, len(s.Exclusions))
	for _, e := range s.Exclusions {
		reasons = append(reasons, string(e.Reason))
	}
	metrics.ObserveSchedule(s.TimeConstraintMet, reasons)
}
