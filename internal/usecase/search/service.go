package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
)

// DefaultTimeout bounds one search cycle, fallback included.
const DefaultTimeout = 10 * time.Second

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-cycle time budget.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator owns one search session: its filter state, its location and
// the outcome of the latest search cycle. It is the only writer of either;
// callers read snapshots or go through ApplyFilterChange.
type Orchestrator struct {
	fullText   FullTextSearcher
	structured StructuredSearcher
	loc        *LocationSync
	arb        *Arbiter
	timeout    time.Duration
	logger     *zap.Logger

	mu            sync.Mutex
	state         filter.State
	outcome       result.Outcome
	fallbackSpent bool
	timer         *time.Timer
	subs          map[uint64]chan result.Outcome
	nextSub       uint64
	closed        bool

	wg sync.WaitGroup
}

// New creates an orchestrator. loc may be nil for a session without a
// persisted location.
func New(
	fullText FullTextSearcher, structured StructuredSearcher, loc *LocationSync, opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		fullText:   fullText,
		structured: structured,
		loc:        loc,
		arb:        NewArbiter(),
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
		subs:       make(map[uint64]chan result.Outcome),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.loc == nil {
		o.loc = NewLocationSync(nil, o.logger)
	}
	o.outcome = result.Loading(backend.Structured)
	return o
}

// Start restores the filter state from the initial location, rewrites the
// location in canonical form and runs the first cycle.
func (o *Orchestrator) Start(ctx context.Context, initial string) Token {
	return o.StartWith(ctx, initial, filter.Partial{})
}

// StartWith is Start with p merged into the restored state before the first
// cycle, so only one request is dispatched.
func (o *Orchestrator) StartWith(ctx context.Context, initial string, p filter.Partial) Token {
	s := o.loc.Restore(initial).Merge(p)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		tok, _, _ := o.arb.Current()
		return tok
	}
	o.state = s
	o.fallbackSpent = false
	o.loc.Commit(o.state)
	return o.dispatchLocked(ctx)
}

// ApplyFilterChange merges p into the filter state, persists the location and
// runs a new cycle. A change that leaves the state equal only re-dispatches
// when no cycle has run yet.
func (o *Orchestrator) ApplyFilterChange(ctx context.Context, p filter.Partial) Token {
	o.mu.Lock()
	defer o.mu.Unlock()

	tok, _, phase := o.arb.Current()
	if o.closed {
		return tok
	}
	next := o.state.Merge(p)
	if next == o.state && phase != PhaseIdle {
		return tok
	}
	if next != o.state {
		o.fallbackSpent = false
	}
	o.state = next
	o.loc.Commit(o.state)
	return o.dispatchLocked(ctx)
}

// Refresh re-runs the current state. The fallback is not retried for a state
// that already used it.
func (o *Orchestrator) Refresh(ctx context.Context) Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		tok, _, _ := o.arb.Current()
		return tok
	}
	return o.dispatchLocked(ctx)
}

// CurrentOutcome returns the visible outcome.
func (o *Orchestrator) CurrentOutcome() result.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// CurrentFilterState returns the committed filter state.
func (o *Orchestrator) CurrentFilterState() filter.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Location returns the shareable location of the current state.
func (o *Orchestrator) Location() string {
	return o.loc.Location()
}

// Subscribe returns a channel of visible outcomes. The channel holds only the
// latest undelivered outcome, so slow readers skip intermediate ones. The
// returned func unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan result.Outcome, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan result.Outcome, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.outcome

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

// Wait blocks until every dispatched request goroutine has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels the in-flight request, closes every subscription and waits
// for request goroutines to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.arb.Cancel()
	if o.timer != nil {
		o.timer.Stop()
	}
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// dispatchLocked starts a cycle for o.state. Caller holds o.mu.
func (o *Orchestrator) dispatchLocked(ctx context.Context) Token {
	req := request.Route(o.state)
	src := req.Backend()

	// Requests outlive the caller's context; the arbiter owns cancellation.
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tok := o.arb.Dispatch(o.state, cancel)

	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.timeout, func() {
		if o.settle(tok, result.Failure(src, result.ErrorTimeout, domain.ErrTimeout.Error())) {
			metrics.SearchCyclesTotal.WithLabelValues(metrics.EventTimeout).Inc()
			o.logger.Warn("search timed out",
				zap.Uint64("token", uint64(tok)),
				zap.String("backend", string(src)),
				zap.Duration("timeout", o.timeout))
		}
	})

	wasLoading := o.outcome.Status == result.StatusLoading && o.outcome.Source == src
	o.outcome = result.Loading(src)
	o.outcome.Token = uint64(tok)
	if !wasLoading {
		o.publishLocked(o.outcome)
	}

	o.logger.Debug("search dispatched",
		zap.Uint64("token", uint64(tok)),
		zap.String("backend", string(src)))

	o.wg.Add(1)
	go o.run(reqCtx, tok, req)
	return tok
}

func (o *Orchestrator) run(ctx context.Context, tok Token, req request.Request) {
	defer o.wg.Done()
	o.settle(tok, o.execute(ctx, tok, req))
}

// execute performs the routed request and, for a recoverable full-text
// failure, at most one structured fallback per filter state.
func (o *Orchestrator) execute(ctx context.Context, tok Token, req request.Request) result.Outcome {
	src := req.Backend()
	raw, err := o.call(ctx, req)
	if err == nil {
		return result.Normalize(src, raw, nil)
	}
	if ctx.Err() != nil || !recoverable(err) {
		return result.Normalize(src, response.Response{}, err)
	}
	fb, ok := request.Fallback(req)
	if !ok || !o.claimFallback(tok) {
		return result.Normalize(src, response.Response{}, err)
	}

	metrics.SearchCyclesTotal.WithLabelValues(metrics.EventFallback).Inc()
	o.logger.Warn("full-text search unavailable, falling back to structured",
		zap.Uint64("token", uint64(tok)), zap.Error(err))

	raw, err = o.call(ctx, fb)
	return result.Normalize(fb.Backend(), raw, err)
}

func (o *Orchestrator) call(ctx context.Context, req request.Request) (response.Response, error) {
	switch req.Backend() {
	case backend.FullText:
		q, _ := req.FullText()
		r, err := o.fullText.SearchFullText(ctx, q)
		if err != nil {
			return response.Response{}, err
		}
		return response.FromFullText(r), nil
	case backend.Structured:
		q, _ := req.Structured()
		r, err := o.structured.SearchStructured(ctx, q)
		if err != nil {
			return response.Response{}, err
		}
		return response.FromStructured(r), nil
	}
	o.logger.Error("request has no backend", zap.String("backend", string(req.Backend())))
	return response.Response{}, domain.ErrUnroutable
}

func recoverable(err error) bool {
	return errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrDecode)
}

// claimFallback marks the fallback used for the current state if tok is
// still current and the state has not used it yet.
func (o *Orchestrator) claimFallback(tok Token) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.fallbackSpent || !o.arb.IsCurrent(tok) {
		return false
	}
	o.fallbackSpent = true
	return true
}

// settle publishes out if tok is the current in-flight token.
func (o *Orchestrator) settle(tok Token, out result.Outcome) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	if v := o.arb.Settle(tok); v != Accepted {
		o.logger.Debug("search response discarded",
			zap.Uint64("token", uint64(tok)), zap.Stringer("verdict", v))
		return false
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	out.Token = uint64(tok)
	o.outcome = out
	metrics.SearchOutcomesTotal.WithLabelValues(string(out.Source), string(out.Status)).Inc()
	o.publishLocked(out)
	return true
}

// publishLocked conflates out into every subscriber channel. Caller holds o.mu.
func (o *Orchestrator) publishLocked(out result.Outcome) {
	for _, ch := range o.subs {
		select {
		case ch <- out:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- out:
		default:
		}
	}
}
