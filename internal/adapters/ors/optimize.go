package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/geo"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
)

const providerName = "openrouteservice"

type vroomJob struct {
	ID          int        `json:"id"`
	Location    []float64  `json:"location"`
	Service     int        `json:"service"`
	TimeWindows [][2]int64 `json:"time_windows,omitempty"`
}

type vroomBreak struct {
	ID          int        `json:"id"`
	TimeWindows [][2]int64 `json:"time_windows"`
	Service     int        `json:"service"`
}

type vroomVehicle struct {
	ID         int          `json:"id"`
	Profile    string       `json:"profile"`
	Start      []float64    `json:"start"`
	End        []float64    `json:"end"`
	TimeWindow [2]int64     `json:"time_window"`
	Breaks     []vroomBreak `json:"breaks,omitempty"`
}

type vroomRequest struct {
	Jobs     []vroomJob     `json:"jobs"`
	Vehicles []vroomVehicle `json:"vehicles"`
	Options  struct {
		G bool `json:"g"`
	} `json:"options"`
}

type vroomStep struct {
	Type     string    `json:"type"`
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
	Duration int       `json:"duration"`
	Distance *int      `json:"distance"`
}

type vroomResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Summary struct {
		ComputingTimes struct {
			Loading int `json:"loading"`
			Solving int `json:"solving"`
			Routing int `json:"routing"`
		} `json:"computing_times"`
	} `json:"summary"`
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
	Routes []struct {
		Vehicle int         `json:"vehicle"`
		Steps   []vroomStep `json:"steps"`
	} `json:"routes"`
}

// Optimize sequences the jobs for a single vehicle using the ORS
// optimization endpoint (VROOM). Opening hours become job time windows, the
// start and hard end become the vehicle time window and the lunch break a
// vehicle break. Times are sent as unix seconds.
func (c *Client) Optimize(
	ctx context.Context,
	req ports.OptimizeRequest,
) (_ *ports.OptimizedSequence, err error) {
	defer obs.Time(ctx, "ors.Optimize")(&err)

	if len(req.Jobs) == 0 {
		return &ports.OptimizedSequence{
			Order:      []string{},
			Unassigned: []string{},
			Metadata:   domain.Optimized(domain.OptimizedMetadata{Provider: providerName, Profile: string(req.Mode)}),
		}, nil
	}

	body, ids, err := buildVroomRequest(req)
	if err != nil {
		return nil, fmt.Errorf("ors optimize: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ors optimize: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/optimization"
	resp, err := c.doWithRetry(ctx, "ors_optimization", func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("ors optimize: %w", err)
	}
	defer resp.Body.Close()

	var vr vroomResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("ors optimize: decode response: %w", err)
	}

	seq, err := parseVroomResponse(vr, req, ids)
	if err != nil {
		return nil, fmt.Errorf("ors optimize: %w", err)
	}
	return seq, nil
}

// buildVroomRequest maps job ids to the integer ids VROOM requires; ids[n-1]
// is the job id sent as n.
func buildVroomRequest(req ports.OptimizeRequest) (*vroomRequest, []string, error) {
	if !req.HardEndAt.After(req.StartAt) {
		return nil, nil, fmt.Errorf("hard end %s is not after start %s", req.HardEndAt, req.StartAt)
	}

	body := &vroomRequest{Jobs: make([]vroomJob, 0, len(req.Jobs))}
	body.Options.G = true

	ids := make([]string, 0, len(req.Jobs))
	for i, j := range req.Jobs {
		job := vroomJob{
			ID:       i + 1,
			Location: j.Location.CoordsToList(),
			Service:  int(j.Service.Seconds()),
		}
		if j.OpensAt < j.ClosesAt {
			job.TimeWindows = [][2]int64{{
				j.OpensAt.On(req.StartAt).Unix(),
				j.ClosesAt.On(req.StartAt).Unix(),
			}}
		}
		body.Jobs = append(body.Jobs, job)
		ids = append(ids, j.ID)
	}

	vehicle := vroomVehicle{
		ID:         1,
		Profile:    string(req.Mode),
		Start:      req.Start.CoordsToList(),
		End:        req.End.CoordsToList(),
		TimeWindow: [2]int64{req.StartAt.Unix(), req.HardEndAt.Unix()},
	}
	if req.Lunch != nil {
		start, end := req.Lunch.Window(req.StartAt)
		vehicle.Breaks = []vroomBreak{{
			ID:          1,
			TimeWindows: [][2]int64{{start.Unix(), end.Unix()}},
			Service:     int(req.Lunch.Duration.Seconds()),
		}}
	}
	body.Vehicles = []vroomVehicle{vehicle}

	return body, ids, nil
}

// parseVroomResponse turns cumulative step durations and distances into
// per-leg values. Break steps do not move the vehicle and are skipped.
func parseVroomResponse(vr vroomResponse, req ports.OptimizeRequest, ids []string) (*ports.OptimizedSequence, error) {
	if vr.Code != 0 {
		return nil, fmt.Errorf("vroom code %d: %s", vr.Code, vr.Error)
	}

	jobID := func(n int) (string, error) {
		if n < 1 || n > len(ids) {
			return "", fmt.Errorf("unknown job id %d in response", n)
		}
		return ids[n-1], nil
	}

	unassigned := make([]string, 0, len(vr.Unassigned))
	for _, u := range vr.Unassigned {
		id, err := jobID(u.ID)
		if err != nil {
			return nil, err
		}
		unassigned = append(unassigned, id)
	}

	seq := &ports.OptimizedSequence{
		Order:      []string{},
		Unassigned: unassigned,
	}

	if len(vr.Routes) == 0 {
		// Nothing could be served; the vehicle goes straight to the end.
		seq.Legs = []domain.Leg{geo.EstimateLeg(req.Start, req.End, req.Mode)}
	} else {
		var (
			prevDur  int
			prevDist int
			prevLoc  = req.Start
		)
		for _, st := range vr.Routes[0].Steps {
			if st.Type != "job" && st.Type != "end" {
				continue
			}

			loc := req.End
			if st.Type == "job" {
				id, err := jobID(st.ID)
				if err != nil {
					return nil, err
				}
				seq.Order = append(seq.Order, id)
				loc = req.Jobs[st.ID-1].Location
			}

			leg := domain.Leg{DurationSeconds: st.Duration - prevDur}
			if st.Distance != nil {
				leg.DistanceMeters = *st.Distance - prevDist
				prevDist = *st.Distance
			} else {
				leg.DistanceMeters = geo.EstimateLeg(prevLoc, loc, req.Mode).DistanceMeters
			}
			prevDur = st.Duration
			prevLoc = loc

			seq.Legs = append(seq.Legs, leg)
		}

		if len(seq.Legs) != len(seq.Order)+1 {
			return nil, fmt.Errorf("route has %d legs for %d jobs; missing end step", len(seq.Legs), len(seq.Order))
		}
	}

	meta := domain.OptimizedMetadata{
		Provider:            providerName,
		Profile:             string(req.Mode),
		ComputingTimeMs:     vr.Summary.ComputingTimes.Loading + vr.Summary.ComputingTimes.Solving + vr.Summary.ComputingTimes.Routing,
		UnassignedClientIDs: unassigned,
	}
	seq.Metadata = domain.Optimized(meta)

	return seq, nil
}
