package cache

import (
	"context"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryGeocodeCache is an in-process L1 in front of an optional slower
// GeocodeCache. Misses fall through to Next and hits from Next are kept
// in memory.
type MemoryGeocodeCache struct {
	mem  *gocache.Cache
	next ports.GeocodeCache
}

func NewMemoryGeocodeCache(ttl time.Duration, next ports.GeocodeCache) *MemoryGeocodeCache {
	return &MemoryGeocodeCache{
		mem:  gocache.New(ttl, 2*ttl),
		next: next,
	}
}

func (m *MemoryGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Point, error) {
	out := make(map[string]domain.Point, len(addresses))
	var misses []string

	for _, a := range uniqueKeys(addresses) {
		if v, ok := m.mem.Get(a); ok {
			out[a] = v.(domain.Point)
			continue
		}
		misses = append(misses, a)
	}

	if len(misses) == 0 || m.next == nil {
		return out, nil
	}

	found, err := m.next.GetMany(ctx, misses)
	if err != nil {
		// L1 hits are still useful.
		logging.L().Warnw("geocode L2 read failed", "req_id", obs.RequestID(ctx), "err", err)
		return out, nil
	}
	for a, p := range found {
		m.mem.SetDefault(a, p)
		out[a] = p
	}
	return out, nil
}

func (m *MemoryGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Point) error {
	for a, p := range results {
		m.mem.SetDefault(a, p)
	}
	if m.next == nil {
		return nil
	}
	return m.next.PutMany(ctx, results)
}
