package xraysearch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
)

// Session is one search session: a filter, its shareable location and the
// outcome of the latest search. Changes supersede in-flight searches; only
// the newest answer ever becomes visible. Safe for concurrent use.
type Session struct {
	orch *searchuc.Orchestrator
	obs  *observer
	last atomic.Uint64
}

func (s *Session) track(tok searchuc.Token) {
	s.last.Store(uint64(tok))
}

// Location returns the canonical query string of the current filter, without
// the leading '?'.
func (s *Session) Location() string { return s.orch.Location() }

// Filter returns the current filter.
func (s *Session) Filter() Filter { return filterFromDomain(s.orch.CurrentFilterState()) }

// ActiveFilters lists the non-empty constraints in display order.
func (s *Session) ActiveFilters() []ActiveFilter {
	return activeFromDomain(s.orch.CurrentFilterState().ActiveFilters())
}

// Outcome returns the visible outcome, which may still be loading.
func (s *Session) Outcome() Outcome { return outcomeFromDomain(s.orch.CurrentOutcome()) }

// Set changes one field and searches again. An empty value clears the field.
// Any change resets the page.
func (s *Session) Set(ctx context.Context, f Field, value string) error {
	df, ok := filter.ParseField(string(f))
	if !ok {
		return fmt.Errorf("unknown filter field %q", f)
	}
	s.track(s.orch.ApplyFilterChange(ctx, filter.Partial{}.Set(df, value)))
	return nil
}

// Clear removes the constraint on f.
func (s *Session) Clear(ctx context.Context, f Field) error {
	return s.Set(ctx, f, "")
}

// SetPage moves to page n of the structured results. Pages start at 1.
func (s *Session) SetPage(ctx context.Context, n int) {
	s.track(s.orch.ApplyFilterChange(ctx, filter.Partial{}.WithPage(n)))
}

// Apply replaces the whole filter.
func (s *Session) Apply(ctx context.Context, f Filter) {
	s.track(s.orch.ApplyFilterChange(ctx, filter.Replace(f.toDomain())))
}

// Refresh re-runs the current filter.
func (s *Session) Refresh(ctx context.Context) {
	s.track(s.orch.Refresh(ctx))
}

// Wait blocks until the search started by the latest change on this Session
// settles, and returns its outcome. A failed search is an Outcome with
// StatusFailed, not an error; errors report ctx expiry or a closed session.
func (s *Session) Wait(ctx context.Context) (_ Outcome, err error) {
	start := time.Now()
	defer func() { s.obs.observe("wait", start, err) }()

	ch, cancel := s.orch.Subscribe()
	defer cancel()

	want := s.last.Load()
	for {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case o, ok := <-ch:
			if !ok {
				return Outcome{}, ErrSessionClosed
			}
			if o.Status == result.StatusLoading || o.Token < want {
				continue
			}
			out := outcomeFromDomain(o)
			s.obs.outcome(s.Location(), out)
			return out, nil
		}
	}
}

// Updates streams every visible outcome. Slow readers only see the latest
// one. The returned func stops the stream and closes the channel.
func (s *Session) Updates() (<-chan Outcome, func()) {
	in, cancel := s.orch.Subscribe()
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		for o := range in {
			v := outcomeFromDomain(o)
			select {
			case out <- v:
			default:
				select {
				case <-out:
				default:
				}
				out <- v
			}
		}
	}()
	return out, cancel
}

// Close cancels any in-flight search and ends every Updates stream.
func (s *Session) Close() {
	s.orch.Close()
}
