package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP shell metrics. Upgraded websocket streams are counted apart from
// plain requests so their lifetime does not skew request latency.
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xraysearch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xraysearch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xraysearch",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests and open streams being served",
		},
	)

	streamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xraysearch",
			Subsystem: "http",
			Name:      "stream_duration_seconds",
			Help:      "Lifetime of upgraded websocket streams in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600},
		},
		[]string{"route"},
	)
)

const unmatchedRoute = "unmatched"

// Middleware records request counts, latency and in-flight load, labeled by
// chi route pattern.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			elapsed := time.Since(start).Seconds()
			if rec.hijacked {
				streamDuration.WithLabelValues(route).Observe(elapsed)
				httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(http.StatusSwitchingProtocols)).Inc()
				return
			}
			status := strconv.Itoa(rec.statusCode())
			httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(elapsed)
			httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// routeLabel keeps label cardinality bounded: ids never leak into labels.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// recorder captures the first status written.
type recorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (w *recorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *recorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through.
func (w *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T does not support hijacking", w.ResponseWriter)
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err //nolint:wrapcheck // delegating to underlying ResponseWriter
}
