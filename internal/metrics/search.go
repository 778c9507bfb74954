package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Catalog backend and search cycle Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xraysearch",
			Name:      "backend_requests_total",
			Help:      "Total number of catalog backend requests",
		},
		[]string{"endpoint", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xraysearch",
			Name:      "backend_request_duration_seconds",
			Help:      "Catalog backend request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	SearchCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xraysearch",
			Name:      "search_cycles_total",
			Help:      "Search cycle transitions by event",
		},
		[]string{"event"}, // dispatched / settled / superseded / timeout / fallback
	)

	SearchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xraysearch",
			Name:      "search_outcomes_total",
			Help:      "Settled search outcomes by source backend and status",
		},
		[]string{"backend", "status"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xraysearch",
			Name:      "cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"kind", "result"}, // result: "hit" / "miss"
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xraysearch",
			Name:      "active_sessions",
			Help:      "Search sessions currently held by the server",
		},
	)
)

// Search cycle events.
const (
	EventDispatched = "dispatched"
	EventSettled    = "settled"
	EventSuperseded = "superseded"
	EventTimeout    = "timeout"
	EventFallback   = "fallback"
)

var registerOnce sync.Once

// Register adds every xraysearch collector to the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpInFlight,
			streamDuration,
			BackendRequestsTotal,
			BackendRequestDuration,
			SearchCyclesTotal,
			SearchOutcomesTotal,
			CacheTotal,
			ActiveSessions,
		)
	})
}
