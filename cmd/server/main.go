package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sales-route-service/internal/adapters/cache"
	"sales-route-service/internal/adapters/distance"
	"sales-route-service/internal/adapters/ors"
	"sales-route-service/internal/adapters/repositories"
	"sales-route-service/internal/api"
	"sales-route-service/internal/config"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/logging"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/platform/db"
	"sales-route-service/internal/ports"
	"sales-route-service/internal/services"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logging.Sync() }()
	logger := logging.L()

	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("database unavailable", "err", err)
	}
	defer database.Close()

	if err := repositories.InitSchema(ctx, database); err != nil {
		logger.Fatalw("schema initialization failed", "err", err)
	}

	// Redis replaces the SQL leg cache when configured; geocodes always go
	// through an in-process L1 in front of Postgres.
	var distanceCache ports.DistanceCache = cache.NewSQLDistanceCache(database, 30*24*time.Hour)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisDistanceCache(ctx, cfg.RedisURL, 7*24*time.Hour)
		if err != nil {
			logger.Warnw("redis unavailable, using postgres distance cache", "err", err)
		} else {
			defer rc.Close()
			distanceCache = rc
		}
	}
	geocodeCache := cache.NewMemoryGeocodeCache(time.Hour, cache.NewSQLGeocodeCache(database))

	mode, err := domain.ParseTravelMode(cfg.Planner.TravelMode)
	if err != nil {
		logger.Fatalw("invalid planner travel mode", "err", err)
	}

	var (
		distances ports.DistanceProvider = distance.StraightLineProvider{}
		geocoder  ports.Geocoder
		orsClient *ors.Client
	)
	if cfg.ORSAPIKey != "" {
		orsClient, err = ors.NewClient(cfg.ORSAPIKey, distanceCache, geocodeCache,
			ors.WithBaseURL(cfg.ORSBaseURL),
			ors.WithRateLimit(cfg.ORSRatePerMinute),
		)
		if err != nil {
			logger.Fatalw("ors client", "err", err)
		}
		distances = orsClient
		geocoder = orsClient
	} else {
		logger.Warnw("ORS_API_KEY not set: travel is estimated in straight lines and geocoding is disabled")
	}

	planner := &services.RoutePlanner{
		Clients:   repositories.NewClientRepository(database),
		Routes:    repositories.NewRouteRepository(database),
		Chain:     optimizerChain(cfg.Planner.Optimizer, orsClient, distances),
		Distances: distances,
		Defaults: services.PlannerDefaults{
			RadiusMeters:  cfg.Planner.CorridorRadiusMeters,
			MaxCandidates: cfg.Planner.MaxCandidates,
			Visit:         time.Duration(cfg.Planner.VisitMinutes) * time.Minute,
			Mode:          mode,
		},
	}

	router := api.NewRouter(api.Deps{
		Planner:      planner,
		Geocoder:     geocoder,
		DefaultMode:  mode,
		DefaultVisit: planner.Defaults.Visit,
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("graceful shutdown failed", "err", err)
		}
	}()

	logger.Infow("server listening", "addr", srv.Addr, "optimizer", cfg.Planner.Optimizer, "mode", mode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("server failed", "err", err)
	}
}

// optimizerChain orders the configured optimizer first, with nearest
// neighbour behind ORS.
func optimizerChain(name string, orsClient *ors.Client, distances ports.DistanceProvider) []services.OptimizerStep {
	nn := services.OptimizerStep{
		Name:      "nearest_neighbor",
		Optimizer: &services.NearestNeighborOptimizer{Provider: distances},
	}

	switch name {
	case "ors":
		if orsClient == nil {
			return []services.OptimizerStep{nn}
		}
		return []services.OptimizerStep{{Name: "ors", Optimizer: orsClient}, nn}
	case "nearest_neighbor":
		return []services.OptimizerStep{nn}
	default:
		return []services.OptimizerStep{{
			Name:      "as_given",
			Optimizer: &services.AsGivenOptimizer{Provider: distances, Reason: "configured"},
		}}
	}
}
