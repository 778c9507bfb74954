package xraysearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/db"
	dbRedis "github.com/kailas-cloud/xraysearch/internal/db/redis"
	"github.com/kailas-cloud/xraysearch/internal/domain"
	domrec "github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	"github.com/kailas-cloud/xraysearch/internal/repository/respcache"
	"github.com/kailas-cloud/xraysearch/internal/transport/catalog"
	healthuc "github.com/kailas-cloud/xraysearch/internal/usecase/health"
	recorduc "github.com/kailas-cloud/xraysearch/internal/usecase/record"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = time.Minute
)

// Internal interfaces, substituted in tests.
type catalogBackend interface {
	searchuc.FullTextSearcher
	searchuc.StructuredSearcher
	recorduc.Catalog
	recorduc.OptionsSource
	healthuc.Pinger
}

type recordUseCase interface {
	Get(ctx context.Context, id string) (result.Item, error)
	Submit(ctx context.Context, d domrec.Draft) (result.Item, error)
	Options(ctx context.Context) (domrec.Options, error)
	Suggestions(ctx context.Context, field, text string) []string
	Stats(ctx context.Context) (domrec.Stats, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the xraysearch SDK entry point.
type Client struct {
	fullText      searchuc.FullTextSearcher
	structured    searchuc.StructuredSearcher
	records       recordUseCase
	health        healthUseCase
	searchTimeout time.Duration
	closeStore    func()
	obs           *observer
}

// New creates a Client for the catalog at WithBaseURL. When WithRedisCache
// is set the cache must answer within the readiness timeout, bounded by ctx.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{searchTimeout: searchuc.DefaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	cat, err := catalog.New(&catalog.Config{
		BaseURL:    cfg.baseURL,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("xraysearch: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	if len(cfg.cacheAddrs) == 0 {
		return wireClient(cat, nil, cfg, obs), nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("xraysearch: create cache store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("xraysearch: cache not ready: %w", err)
	}
	c := wireClient(cat, &cacheWiring{store: store, ttl: cfg.cacheTTL}, cfg, obs)
	c.closeStore = store.Close
	return c, nil
}

type cacheWiring struct {
	store db.Store
	ttl   time.Duration
}

func wireClient(cat catalogBackend, cw *cacheWiring, cfg *clientConfig, obs *observer) *Client {
	var (
		structured  searchuc.StructuredSearcher = cat
		options     recorduc.OptionsSource      = cat
		invalidator recorduc.Invalidator
		cachePinger healthuc.Pinger
	)
	if cw != nil {
		ttl := cw.ttl
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		cache := respcache.New(cw.store, ttl, "", nil, zap.NewNop())
		structured = cache.Structured(cat)
		options = cache.Options(cat)
		invalidator = cache
		cachePinger = cw.store
	}

	timeout := cfg.searchTimeout
	if timeout <= 0 {
		timeout = searchuc.DefaultTimeout
	}
	return &Client{
		fullText:      cat,
		structured:    structured,
		records:       recorduc.New(cat, options, invalidator),
		health:        healthuc.New(cat, cachePinger),
		searchTimeout: timeout,
		obs:           obs,
	}
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.closeStore != nil {
		c.closeStore()
	}
}

// Ping checks that the catalog (and the cache, when configured) answers.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	rep := c.health.Check(ctx)
	if rep.Status == healthuc.Healthy {
		return nil
	}
	for _, name := range []string{healthuc.ComponentCatalog, healthuc.ComponentCache} {
		if rep.Checks[name] == healthuc.CheckError {
			return fmt.Errorf("ping: %s unreachable: %w", name, domain.ErrTransport)
		}
	}
	return fmt.Errorf("ping: %s: %w", rep.Status, domain.ErrTransport)
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, id string) (_ Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	it, err := c.records.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	return itemFromDomain(it), nil
}

// Submit validates and uploads a new record. Validation failures wrap
// ErrInvalidRecord and carry a *ValidationError.
func (c *Client) Submit(ctx context.Context, d Draft) (_ Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("submit", start, err) }()

	it, err := c.records.Submit(ctx, d.toDomain())
	if err != nil {
		return Item{}, err
	}
	return itemFromDomain(it), nil
}

// Options returns the dropdown values for body part, institution and diagnosis.
func (c *Client) Options(ctx context.Context) (_ Options, err error) {
	start := time.Now()
	defer func() { c.obs.observe("options", start, err) }()

	o, err := c.records.Options(ctx)
	if err != nil {
		return Options{}, err
	}
	return optionsFromDomain(o), nil
}

// Suggestions completes text for "diagnosis", "institution" or "tags".
// It never fails; anything unanswerable yields an empty list.
func (c *Client) Suggestions(ctx context.Context, field, text string) []string {
	start := time.Now()
	out := c.records.Suggestions(ctx, field, text)
	c.obs.observe("suggestions", start, nil)
	return out
}

// Stats returns catalog statistics.
func (c *Client) Stats(ctx context.Context) (_ Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	s, err := c.records.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return statsFromDomain(s), nil
}

// NewSession starts a search session from a location query string such as
// "search=fracture&body_part=Chest", with or without the leading '?'. A
// malformed location starts from an empty filter. The first search runs immediately; use Wait for its outcome.
func (c *Client) NewSession(ctx context.Context, location string) *Session {
	orch := searchuc.New(c.fullText, c.structured, nil, searchuc.WithTimeout(c.searchTimeout))
	s := &Session{orch: orch, obs: c.obs}
	s.track(orch.Start(ctx, location))
	return s
}

