package xraysearch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	searchTimeout time.Duration

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL sets the catalog API root. Default: http://127.0.0.1:8000.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithHTTPClient sets the HTTP client used for catalog calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request HTTP timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithSearchTimeout bounds one search cycle of a Session, fallback included.
// Default: 10s.
func WithSearchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchTimeout = d
	})
}

// WithRedisCache caches structured pages and filter options in Redis for ttl.
// A non-positive ttl means the default of 60s. Submitting a record through
// the Client drops everything cached.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
