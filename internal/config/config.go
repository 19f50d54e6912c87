package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMissing = errors.New("required configuration value is missing")

// PlannerDefaults are the values used when a planning request leaves a
// field empty. They can come from a YAML file and are overridden per field
// by environment variables.
type PlannerDefaults struct {
	CorridorRadiusMeters float64 `yaml:"corridor_radius_meters"`
	MaxCandidates        int     `yaml:"max_candidates"`
	VisitMinutes         int     `yaml:"visit_minutes"`
	TravelMode           string  `yaml:"travel_mode"`
	// Optimizer is one of "ors", "nearest_neighbor", "as_given".
	Optimizer string `yaml:"optimizer"`
}

type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RedisURL         string
	ORSAPIKey        string
	ORSBaseURL       string
	ORSRatePerMinute int
	Planner          PlannerDefaults
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultPlanner() PlannerDefaults {
	return PlannerDefaults{
		CorridorRadiusMeters: 5000,
		MaxCandidates:        10,
		VisitMinutes:         30,
		TravelMode:           "driving-car",
		Optimizer:            "ors",
	}
}

// Load reads the server configuration. DATABASE_URL is required.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      Get("APP_ENV", "development"),
		Port:        Get("PORT", "8080"),
		DatabaseURL: Get("DATABASE_URL", ""),
		RedisURL:    Get("REDIS_URL", ""),
		ORSAPIKey:   Get("ORS_API_KEY", ""),
		ORSBaseURL:  Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		Planner:     defaultPlanner(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("load config: DATABASE_URL: %w", ErrMissing)
	}

	rate, err := getInt("ORS_RATE_PER_MINUTE", 40)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ORSRatePerMinute = rate

	if path := Get("PLANNER_CONFIG", ""); path != "" {
		if err := loadPlannerFile(path, &cfg.Planner); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := applyPlannerEnv(&cfg.Planner); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Planner.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func loadPlannerFile(path string, p *PlannerDefaults) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read planner config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, p); err != nil {
		return fmt.Errorf("parse planner config %q: %w", path, err)
	}
	return nil
}

func applyPlannerEnv(p *PlannerDefaults) error {
	if v := Get("PLANNER_RADIUS_METERS", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PLANNER_RADIUS_METERS: %w", err)
		}
		p.CorridorRadiusMeters = f
	}

	n, err := getInt("PLANNER_MAX_CANDIDATES", p.MaxCandidates)
	if err != nil {
		return err
	}
	p.MaxCandidates = n

	n, err = getInt("PLANNER_VISIT_MINUTES", p.VisitMinutes)
	if err != nil {
		return err
	}
	p.VisitMinutes = n

	p.TravelMode = Get("PLANNER_TRAVEL_MODE", p.TravelMode)
	p.Optimizer = Get("PLANNER_OPTIMIZER", p.Optimizer)
	return nil
}

func (p PlannerDefaults) validate() error {
	if p.CorridorRadiusMeters <= 0 {
		return fmt.Errorf("planner corridor_radius_meters must be positive, got %v", p.CorridorRadiusMeters)
	}
	if p.MaxCandidates <= 0 {
		return fmt.Errorf("planner max_candidates must be positive, got %d", p.MaxCandidates)
	}
	if p.VisitMinutes <= 0 {
		return fmt.Errorf("planner visit_minutes must be positive, got %d", p.VisitMinutes)
	}
	switch p.Optimizer {
	case "ors", "nearest_neighbor", "as_given":
	default:
		return fmt.Errorf("planner optimizer %q is not one of ors, nearest_neighbor, as_given", p.Optimizer)
	}
	return nil
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
