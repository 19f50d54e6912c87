package cache

import (
	"context"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/platform/obs"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLGeocodeCache maps normalized addresses to coordinates in Postgres.
type SQLGeocodeCache struct {
	DB *sqlx.DB
}

func NewSQLGeocodeCache(db *sqlx.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

type geocodeRow struct {
	Address string  `db:"address"`
	Lat     float64 `db:"lat"`
	Lon     float64 `db:"lon"`
}

func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Point, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Point{}, nil
	}

	var rows []geocodeRow
	q := `SELECT address, lat, lon FROM geocode_cache WHERE address = ANY($1::text[]);`
	if err := s.DB.SelectContext(ctx, &rows, q, uniq); err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	out := make(map[string]domain.Point, len(rows))
	for _, r := range rows {
		out[r.Address] = domain.Point{Lat: r.Lat, Lon: r.Lon}
	}
	return out, nil
}

func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Point) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	rows := make([]geocodeRow, 0, len(results))
	for addr, p := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("insert geocode cache: empty address key")
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("insert geocode cache address=%q: %w", addr, err)
		}
		rows = append(rows, geocodeRow{Address: addr, Lat: p.Lat, Lon: p.Lon})
	}

	q := `
	INSERT INTO geocode_cache (address, lat, lon)
	VALUES (:address, :lat, :lon)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`
	if _, err := s.DB.NamedExecContext(ctx, q, rows); err != nil {
		return fmt.Errorf("insert geocode cache: %w", err)
	}
	return nil
}
