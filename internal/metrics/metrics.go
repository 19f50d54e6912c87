package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// Schedules counts scheduler runs by whether the hard end was met.
	Schedules = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_schedules_total", Help: "Schedules computed, by time constraint outcome."},
		[]string{"constraint_met"},
	)
	// ExcludedStops counts client stops not counted as visits.
	ExcludedStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_excluded_stops_total", Help: "Client stops excluded from schedules, by reason."},
		[]string{"reason"},
	)
	OptimizerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_optimizer_runs_total", Help: "Sequence optimizer invocations by optimizer and outcome."},
		[]string{"optimizer", "outcome"},
	)

	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "external_requests_total", Help: "Outbound requests to external services."},
		[]string{"service", "outcome"},
	)
	// OpDuration times the operations wrapped by obs.Time.
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "op_duration_seconds", Help: "Internal operation duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"op", "outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Cache lookups by cache and result."},
		[]string{"cache", "result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Schedules)
		Registry.MustRegister(ExcludedStops)
		Registry.MustRegister(OptimizerRuns)
		Registry.MustRegister(ExternalRequests)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(OpDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveSchedule records one scheduler outcome.
func ObserveSchedule(constraintMet bool, exclusionReasons []string) {
	Schedules.WithLabelValues(strconv.FormatBool(constraintMet)).Inc()
	for _, r := range exclusionReasons {
		ExcludedStops.WithLabelValues(r).Inc()
	}
}

// ObserveCache records hit and miss counts of one batched lookup.
func ObserveCache(cache string, hits, misses int) {
	if hits > 0 {
		CacheLookups.WithLabelValues(cache, "hit").Add(float64(hits))
	}
	if misses > 0 {
		CacheLookups.WithLabelValues(cache, "miss").Add(float64(misses))
	}
}
