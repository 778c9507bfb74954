package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/db"
	"github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

// DefaultKeyPrefix namespaces cache keys.
const DefaultKeyPrefix = "xraysearch:"

// Cache kinds, used in keys and as the "kind" metric label.
const (
	kindStructured = "structured"
	kindOptions    = "options"
	kindGeneration = "gen"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type structuredSearcher interface {
	SearchStructured(ctx context.Context, req request.Structured) (response.Structured, error)
}

type optionsSource interface {
	Options(ctx context.Context) (record.Options, error)
}

// Cache stores catalog responses in a key-value store. Store failures are
// logged and never fail the caller.
type Cache struct {
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a response cache.
// cacheTotal is a counter vec with labels "kind" and "result" ("hit"/"miss"), passed explicitly.
func New(
	s store,
	ttl time.Duration,
	prefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, ttl: ttl, prefix: prefix, cacheTotal: cacheTotal, logger: logger}
}

// Structured wraps a structured searcher.
func (c *Cache) Structured(inner structuredSearcher) *Structured {
	return &Structured{inner: inner, cache: c}
}

// Options wraps an options source.
func (c *Cache) Options(inner optionsSource) *Options {
	return &Options{inner: inner, cache: c}
}

// Invalidate drops everything cached so far, e.g. after a submission.
// Structured pages are keyed by a generation stored alongside them; writing a
// new generation orphans the old pages, which then expire on their own TTL.
func (c *Cache) Invalidate(ctx context.Context) {
	gen := strconv.FormatInt(time.Now().UnixNano(), 36)
	genKey := c.key(kindGeneration, "")
	if err := c.store.SetWithTTL(ctx, genKey, []byte(gen), 0); err != nil {
		c.logger.Warn("Failed to bump cache generation", zap.String("key", genKey), zap.Error(err))
	}
	key := c.key(kindOptions, "")
	if err := c.store.Del(ctx, key); err != nil {
		c.logger.Warn("Failed to invalidate cached options", zap.String("key", key), zap.Error(err))
	}
}

// generation returns the current structured page generation. ok is false
// when the store cannot be read, in which case pages must not be cached.
func (c *Cache) generation(ctx context.Context) (string, bool) {
	key := c.key(kindGeneration, "")
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return "0", true
	case err != nil:
		c.logger.Warn("Failed to read cache generation", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return string(data), true
}

func (c *Cache) structuredKey(gen, params string) string {
	return c.key(kindStructured, gen+"|"+params)
}

// Structured caches structured query pages.
type Structured struct {
	inner structuredSearcher
	cache *Cache
}

// SearchStructured returns a cached page or queries the inner searcher.
func (s *Structured) SearchStructured(ctx context.Context, req request.Structured) (response.Structured, error) {
	gen, ok := s.cache.generation(ctx)
	if !ok {
		s.cache.inc(kindStructured, "miss")
		return s.inner.SearchStructured(ctx, req)
	}
	key := s.cache.structuredKey(gen, req.Params().Encode())
	return load(ctx, s.cache, kindStructured, key, func(ctx context.Context) (response.Structured, error) {
		return s.inner.SearchStructured(ctx, req)
	})
}

// Options caches the dropdown lists.
type Options struct {
	inner optionsSource
	cache *Cache
}

// Options returns cached lists or fetches them.
func (o *Options) Options(ctx context.Context) (record.Options, error) {
	return load(ctx, o.cache, kindOptions, o.cache.key(kindOptions, ""), o.inner.Options)
}

func load[T any](
	ctx context.Context, c *Cache, kind, key string, fetch func(context.Context) (T, error),
) (T, error) {
	if v, ok := get[T](ctx, c, key); ok {
		c.inc(kind, "hit")
		return v, nil
	}
	c.inc(kind, "miss")

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.put(ctx, key, v)
	return v, nil
}

func get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if len(data) == 0 {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

func (c *Cache) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(kind, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(kind, result).Inc()
	}
}

func (c *Cache) key(kind, params string) string {
	if params == "" {
		return c.prefix + kind
	}
	h := sha256.Sum256([]byte(params))
	return c.prefix + kind + ":" + hex.EncodeToString(h[:])
}
