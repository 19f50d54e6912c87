package api

import (
	"net/http"
	"sales-route-service/internal/api/handlers"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/metrics"
	"sales-route-service/internal/ports"
	"sales-route-service/internal/services"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Planner *services.RoutePlanner
	// Geocoder may be nil; /geocode then answers 503.
	Geocoder     ports.Geocoder
	DefaultMode  domain.TravelMode
	DefaultVisit time.Duration
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.UserHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	candidates := &handlers.CandidateHandler{Planner: d.Planner}
	schedule := &handlers.ScheduleHandler{DefaultMode: d.DefaultMode, DefaultVisit: d.DefaultVisit}
	routes := &handlers.RouteHandler{Planner: d.Planner}
	geocode := &handlers.GeocodeHandler{Geocoder: d.Geocoder}
	clients := &handlers.ClientHandler{Planner: d.Planner}

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Post("/candidates", candidates.Find)
	r.Post("/schedule", schedule.Schedule)
	r.Post("/geocode", geocode.Geocode)
	r.Delete("/clients/{id}", clients.Deactivate)

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", routes.List)
		r.Post("/", routes.Create)
		r.Get("/{id}", routes.Get)
		r.Delete("/{id}", routes.Delete)
		r.Post("/{id}/recalculate", routes.Recalculate)
	})

	return r
}
