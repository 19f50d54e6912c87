package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		opens_at SMALLINT NOT NULL DEFAULT 540,
		closes_at SMALLINT NOT NULL DEFAULT 1020,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_clients_owner_active ON clients(owner_id, active);`,
	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		start_address TEXT NOT NULL,
		start_lat DOUBLE PRECISION NOT NULL,
		start_lon DOUBLE PRECISION NOT NULL,
		end_address TEXT NOT NULL,
		end_lat DOUBLE PRECISION NOT NULL,
		end_lon DOUBLE PRECISION NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		hard_end_at TIMESTAMPTZ NOT NULL,
		time_zone TEXT NOT NULL DEFAULT 'UTC',
		lunch_start SMALLINT,
		lunch_minutes INTEGER,
		travel_mode TEXT NOT NULL,
		optimization JSONB NOT NULL,
		total_distance_km DOUBLE PRECISION NOT NULL,
		total_duration_minutes DOUBLE PRECISION NOT NULL,
		total_visits INTEGER NOT NULL,
		time_constraint_met BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`ALTER TABLE routes ADD COLUMN IF NOT EXISTS time_zone TEXT NOT NULL DEFAULT 'UTC';`,
	`CREATE INDEX IF NOT EXISTS idx_routes_owner_created ON routes(owner_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS route_stops (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		client_id TEXT,
		address TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		stop_order INTEGER NOT NULL,
		stop_type TEXT NOT NULL,
		arrive_at TIMESTAMPTZ NOT NULL,
		depart_at TIMESTAMPTZ NOT NULL,
		travel_seconds INTEGER NOT NULL,
		travel_meters INTEGER NOT NULL,
		visit_seconds INTEGER NOT NULL,
		included BOOLEAN NOT NULL,
		exclusion TEXT NOT NULL DEFAULT '',
		UNIQUE (route_id, stop_order)
	);`,
	`CREATE TABLE IF NOT EXISTS distance_cache (
		mode TEXT NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (mode, origin, destination)
	);`,
	`CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);`,
}

// InitSchema creates the Postgres tables in a single transaction.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}
