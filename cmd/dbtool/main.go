package main

import (
	"context"
	"errors"
	"log"
	"os"
	"sales-route-service/internal/adapters/cache"
	"sales-route-service/internal/adapters/ors"
	"sales-route-service/internal/adapters/repositories"
	"sales-route-service/internal/config"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/platform/db"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

const geocodeBatch = 50

// dbtool initializes the schema, seeds clients from JSON and geocodes
// clients that have an address but no coordinates.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := logging.Init(config.Get("APP_ENV", "development")); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logging.Sync() }()
	logger := logging.L()

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	database, err := db.Open(ctx, databaseURL)
	if err != nil {
		logger.Fatalw("database unavailable", "err", err)
	}
	defer database.Close()

	clients := repositories.NewClientRepository(database)

	seedPath := config.Get("SEED_PATH", "data/seeds/clients.json")
	if err := initAndSeed(ctx, database, clients, seedPath); err != nil {
		logger.Fatalw("init and seed failed", "err", err)
	}

	apiKey := config.Get("ORS_API_KEY", "")
	if apiKey == "" {
		logger.Info("ORS_API_KEY not set; skipping geocoding")
		return
	}

	limit, err := strconv.Atoi(config.Get("GEOCODE_LIMIT", "500"))
	if err != nil || limit <= 0 {
		logger.Fatalw("GEOCODE_LIMIT must be a positive integer", "value", config.Get("GEOCODE_LIMIT", ""))
	}

	geocoder, err := ors.NewClient(apiKey, nil, cache.NewSQLGeocodeCache(database),
		ors.WithBaseURL(config.Get("ORS_BASE_URL", ors.DefaultBaseURL)),
		ors.WithCountry(config.Get("GEOCODE_COUNTRY", "")),
	)
	if err != nil {
		logger.Fatalw("ors client", "err", err)
	}

	if err := geocodeClients(ctx, clients, geocoder, limit); err != nil {
		logger.Fatalw("geocoding failed", "err", err)
	}
}

func initAndSeed(ctx context.Context, database *sqlx.DB, clients *repositories.ClientRepository, seedPath string) error {
	logger := logging.L()

	logger.Info("Initializing database schema...")
	if err := repositories.InitSchema(ctx, database); err != nil {
		return err
	}
	logger.Info("Schema ready.")

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logger.Infow("no seed file; skipping seeding", "path", seedPath)
		return nil
	}

	logger.Infow("Seeding clients...", "path", seedPath)
	n, err := repositories.SeedClientsFromJSON(ctx, clients, seedPath)
	if err != nil {
		return err
	}
	logger.Infow("Seeding complete.", "clients", n)
	return nil
}

// geocodeClients resolves pending clients in batches. Addresses that fail
// are logged and left without coordinates for a later run.
func geocodeClients(ctx context.Context, repo *repositories.ClientRepository, geocoder *ors.Client, limit int) error {
	logger := logging.L()

	pending, err := repo.ListUngeocoded(ctx, limit)
	if err != nil {
		return err
	}
	logger.Infow("geocoding clients", "pending", len(pending))

	resolved, failed := 0, 0
	for start := 0; start < len(pending); start += geocodeBatch {
		batch := pending[start:min(start+geocodeBatch, len(pending))]

		addresses := make([]string, 0, len(batch))
		for _, c := range batch {
			addresses = append(addresses, c.Address)
		}

		results := geocoder.GeocodeMany(ctx, addresses)

		updated := make([]domain.Client, 0, len(batch))
		for i, res := range results {
			if res.Err != nil {
				failed++
				logger.Warnw("geocode failed", "client_id", batch[i].ID, "address", res.Address, "err", res.Err)
				continue
			}
			c := batch[i]
			c.Location = res.Location
			updated = append(updated, c)
		}

		if err := repo.UpsertClients(ctx, updated); err != nil {
			return err
		}
		resolved += len(updated)
	}

	logger.Infow("geocoding complete", "resolved", resolved, "failed", failed)
	return nil
}
