package cache

import (
	"context"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDistanceTTL = 7 * 24 * time.Hour

// RedisDistanceCache keeps one hash per (mode, origin); fields are
// destination keys and values are "meters:seconds".
type RedisDistanceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDistanceCache parses a redis:// URL and verifies the connection.
func NewRedisDistanceCache(ctx context.Context, url string, ttl time.Duration) (*RedisDistanceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis distance cache: parse url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis distance cache: ping: %w", err)
	}
	return NewRedisDistanceCacheFromClient(client, ttl), nil
}

func NewRedisDistanceCacheFromClient(client *redis.Client, ttl time.Duration) *RedisDistanceCache {
	if ttl <= 0 {
		ttl = defaultDistanceTTL
	}
	return &RedisDistanceCache{client: client, prefix: "dist", ttl: ttl}
}

func (r *RedisDistanceCache) Close() error { return r.client.Close() }

func (r *RedisDistanceCache) key(mode domain.TravelMode, origin string) string {
	return r.prefix + ":" + string(mode) + ":" + origin
}

func (r *RedisDistanceCache) GetMany(
	ctx context.Context,
	mode domain.TravelMode,
	origin string,
	destinations []string,
) (_ map[string]domain.Leg, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("redis distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]domain.Leg{}, nil
	}

	vals, err := r.client.HMGet(ctx, r.key(mode, origin), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis distance cache: hmget: %w", err)
	}

	out := make(map[string]domain.Leg, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		leg, perr := parseLeg(s)
		if perr != nil {
			// A corrupt entry is a miss; it is overwritten on the next put.
			continue
		}
		out[uniq[i]] = leg
	}
	return out, nil
}

func (r *RedisDistanceCache) PutMany(
	ctx context.Context,
	mode domain.TravelMode,
	origin string,
	results map[string]domain.Leg,
) (err error) {
	defer obs.Time(ctx, "distance.redis.PutMany")(&err)

	if origin == "" {
		return errors.New("redis distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, leg := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("redis distance cache: empty destination key")
		}
		fields[dest] = formatLeg(leg)
	}

	key := r.key(mode, origin)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis distance cache: hset: %w", err)
	}
	return nil
}

func formatLeg(l domain.Leg) string {
	return strconv.Itoa(l.DistanceMeters) + ":" + strconv.Itoa(l.DurationSeconds)
}

func parseLeg(s string) (domain.Leg, error) {
	m, sec, ok := strings.Cut(s, ":")
	if !ok {
		return domain.Leg{}, fmt.Errorf("malformed leg %q", s)
	}
	meters, err := strconv.Atoi(m)
	if err != nil {
		return domain.Leg{}, fmt.Errorf("malformed leg %q: %w", s, err)
	}
	seconds, err := strconv.Atoi(sec)
	if err != nil {
		return domain.Leg{}, fmt.Errorf("malformed leg %q: %w", s, err)
	}
	return domain.Leg{DistanceMeters: meters, DurationSeconds: seconds}, nil
}
