package cache

import (
	"context"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLDistanceCache is a Postgres-backed cache for origin->destination legs,
// partitioned by travel mode.
type SQLDistanceCache struct {
	DB *sqlx.DB
	// MaxAge ignores rows older than this; zero keeps rows forever.
	MaxAge time.Duration
}

func NewSQLDistanceCache(db *sqlx.DB, maxAge time.Duration) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db, MaxAge: maxAge}
}

type distanceRow struct {
	Destination     string `db:"destination"`
	DistanceMeters  int    `db:"distance_meters"`
	DurationSeconds int    `db:"duration_seconds"`
}

// Fetch cached legs for one origin and multiple destinations.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	mode domain.TravelMode,
	origin string,
	destinations []string,
) (_ map[string]domain.Leg, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]domain.Leg{}, nil
	}

	q := `
	SELECT destination, distance_meters, duration_seconds
	FROM distance_cache
	WHERE mode = $1
		AND origin = $2
		AND destination = ANY($3::text[])
		AND ($4::bigint = 0 OR fetched_at > now() - make_interval(secs => $4::bigint));
	`

	var rows []distanceRow
	if err := s.DB.SelectContext(ctx, &rows, q, string(mode), origin, uniq, int64(s.MaxAge.Seconds())); err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}

	out := make(map[string]domain.Leg, len(rows))
	for _, r := range rows {
		out[r.Destination] = domain.Leg{
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
		}
	}
	return out, nil
}

// Store legs for a single origin in one statement.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	mode domain.TravelMode,
	origin string,
	results map[string]domain.Leg,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	dests := make([]string, 0, len(results))
	meters := make([]int64, 0, len(results))
	seconds := make([]int64, 0, len(results))
	for dest, leg := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert distance cache: empty destination key")
		}
		dests = append(dests, dest)
		meters = append(meters, int64(leg.DistanceMeters))
		seconds = append(seconds, int64(leg.DurationSeconds))
	}

	q := `
	INSERT INTO distance_cache (mode, origin, destination, distance_meters, duration_seconds, fetched_at)
	SELECT $1, $2, d, m, s, now()
	FROM unnest($3::text[], $4::bigint[], $5::bigint[]) AS t(d, m, s)
	ON CONFLICT (mode, origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		fetched_at = EXCLUDED.fetched_at;
	`
	if _, err := s.DB.ExecContext(ctx, q, string(mode), origin, dests, meters, seconds); err != nil {
		return fmt.Errorf("insert distance cache origin=%q: %w", origin, err)
	}
	return nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
