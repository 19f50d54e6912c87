package ors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrNoMatch is returned when ORS has no result for an address.
var ErrNoMatch = errors.New("ors: no geocode match")

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves a single address.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Point, error) {
	res := c.GeocodeMany(ctx, []string{address})
	if res[0].Err != nil {
		return domain.Point{}, res[0].Err
	}
	return *res[0].Location, nil
}

// GeocodeMany resolves addresses one request each, in parallel, after a
// cache lookup. Results are returned in input order; a failed address
// carries its own error and does not fail the batch.
func (c *Client) GeocodeMany(ctx context.Context, addresses []string) []ports.GeocodeResult {
	var err error
	defer obs.Time(ctx, "ors.GeocodeMany")(&err)

	out := make([]ports.GeocodeResult, len(addresses))
	norm := make([]string, len(addresses))
	for i, a := range addresses {
		out[i].Address = a
		norm[i] = normalize(a)
		if norm[i] == "" {
			out[i].Err = domain.Invalidf("address", "must be non-empty")
		}
	}

	hits := map[string]domain.Point{}
	if c.geocodeCache != nil {
		cached, cerr := c.geocodeCache.GetMany(ctx, norm)
		if cerr != nil {
			logging.L().Warnw("geocode cache read failed", "req_id", obs.RequestID(ctx), "err", cerr)
		} else {
			hits = cached
		}
	}

	// Deduplicate misses so each address is requested once.
	var (
		mu    sync.Mutex
		fresh = make(map[string]domain.Point)
		fails = make(map[string]error)
	)
	pending := make(map[string]struct{})
	for i, n := range norm {
		if out[i].Err != nil {
			continue
		}
		if _, ok := hits[n]; !ok {
			pending[n] = struct{}{}
		}
	}
	metrics.ObserveCache("geocode", len(addresses)-len(pending), len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.geocodeLimit)
	for n := range pending {
		n := n
		g.Go(func() error {
			p, gerr := c.geocodeOne(gctx, n)
			mu.Lock()
			defer mu.Unlock()
			if gerr != nil {
				fails[n] = gerr
				return nil
			}
			fresh[n] = p
			return nil
		})
	}
	_ = g.Wait()

	if c.geocodeCache != nil && len(fresh) > 0 {
		if perr := c.geocodeCache.PutMany(ctx, fresh); perr != nil {
			logging.L().Warnw("geocode cache write failed", "req_id", obs.RequestID(ctx), "err", perr)
		}
	}

	failed := 0
	for i, n := range norm {
		if out[i].Err != nil {
			failed++
			continue
		}
		if p, ok := hits[n]; ok {
			out[i].Location = &p
			continue
		}
		if p, ok := fresh[n]; ok {
			out[i].Location = &p
			continue
		}
		out[i].Err = fails[n]
		if out[i].Err == nil {
			out[i].Err = fmt.Errorf("geocode %q: %w", addresses[i], ErrNoMatch)
		}
		failed++
	}

	if failed > 0 {
		err = fmt.Errorf("%d of %d addresses failed", failed, len(addresses))
	}
	return out
}

func (c *Client) geocodeOne(ctx context.Context, address string) (domain.Point, error) {
	endpoint := c.baseURL + "/geocode/search"

	resp, err := c.doWithRetry(ctx, "ors_geocode", func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("size", "1")
		if c.country != "" {
			q.Set("boundary.country", c.country)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Point{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoMatch)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.Point{}, fmt.Errorf("geocode %q: invalid coordinate format", address)
	}

	p := domain.Point{Lon: coords[0], Lat: coords[1]}
	if err := p.Validate(); err != nil {
		return domain.Point{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	return p, nil
}
