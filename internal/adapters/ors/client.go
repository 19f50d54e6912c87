package ors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

// Client talks to OpenRouteService for geocoding, distance matrices and
// VROOM optimization.
//
// It coordinates:
//   - Address normalization
//   - Geocode and distance caching (both optional)
//   - Outbound rate limiting
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type Client struct {
	session       *http.Client
	apiKey        string
	baseURL       string
	country       string
	limiter       *rate.Limiter
	maxAttempts   int
	backoff       time.Duration
	geocodeLimit  int
	distanceCache ports.DistanceCache
	geocodeCache  ports.GeocodeCache
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.session = h }
}

// WithRateLimit caps outbound requests per minute. Zero disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
}

// WithCountry restricts geocoding to an ISO country code.
func WithCountry(code string) Option {
	return func(c *Client) { c.country = code }
}

// WithBackoff sets the first retry delay; it doubles on each attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(
	apiKey string,
	distanceCache ports.DistanceCache,
	geocodeCache ports.GeocodeCache,
	opts ...Option,
) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	c := &Client{
		session:       &http.Client{Timeout: 10 * time.Second},
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		limiter:       rate.NewLimiter(rate.Limit(40.0/60), 1),
		maxAttempts:   4,
		backoff:       200 * time.Millisecond,
		geocodeLimit:  4,
		distanceCache: distanceCache,
		geocodeCache:  geocodeCache,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GetDistance delegates to the batched path to reuse caching and matrix logic.
func (c *Client) GetDistance(
	ctx context.Context,
	mode domain.TravelMode,
	origin domain.Point,
	destination domain.Point,
) (domain.Leg, error) {
	results, err := c.GetDistances(ctx, mode, origin, []domain.Point{destination})
	if err != nil {
		return domain.Leg{}, fmt.Errorf("get distance %s -> %s: %w", origin.Key(), destination.Key(), err)
	}

	leg, ok := results[destination.Key()]
	if !ok {
		return domain.Leg{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}

	return leg, nil
}

// GetDistances computes legs from a single origin to many destinations,
// keyed by Point.Key(). A destination equal to the origin gets a zero leg.
func (c *Client) GetDistances(
	ctx context.Context,
	mode domain.TravelMode,
	origin domain.Point,
	destinations []domain.Point,
) (_ map[string]domain.Leg, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if err := origin.Validate(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Leg, len(destinations))
	originKey := origin.Key()

	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Point, 0, len(destinations))
	for _, d := range destinations {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		k := d.Key()
		if k == originKey {
			out[k] = domain.Leg{}
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(destList))
	for _, d := range destList {
		keys = append(keys, d.Key())
	}

	hits := map[string]domain.Leg{}
	// Check the distance cache before issuing external API calls.
	if c.distanceCache != nil {
		cached, cerr := c.distanceCache.GetMany(ctx, mode, originKey, keys)
		if cerr != nil {
			logging.L().Warnw("distance cache read failed", "req_id", obs.RequestID(ctx), "err", cerr)
		} else {
			hits = cached
		}
	}

	misses := make([]domain.Point, 0, len(destList))
	for _, d := range destList {
		if leg, ok := hits[d.Key()]; ok {
			out[d.Key()] = leg
			continue
		}
		misses = append(misses, d)
	}
	metrics.ObserveCache("distance", len(destList)-len(misses), len(misses))

	if len(misses) == 0 {
		return out, nil
	}

	// Fetch a single origin->many matrix row for all cache misses.
	fetched, err := c.fetchMatrixRow(ctx, mode, origin, misses)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	if c.distanceCache != nil {
		if err := c.distanceCache.PutMany(ctx, mode, originKey, fetched); err != nil {
			logging.L().Warnw("distance cache write failed", "req_id", obs.RequestID(ctx), "err", err)
		}
	}

	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}
