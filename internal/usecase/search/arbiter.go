package search

import (
	"context"
	"sync"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
)

// Token orders dispatched requests. Later dispatches get larger tokens.
type Token uint64

// Phase is the arbiter's state for the current token.
type Phase string

// Arbiter phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseDispatched Phase = "dispatched"
	PhaseSettled    Phase = "settled"
)

// Verdict is the arbiter's decision on a settlement attempt.
type Verdict int

// Settlement verdicts.
const (
	// Accepted: the token is current and was in flight; its outcome may be shown.
	Accepted Verdict = iota
	// Superseded: a newer token exists; the outcome must have no visible effect.
	Superseded
	// AlreadySettled: the current token was settled earlier (response, timeout or cancel).
	AlreadySettled
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Superseded:
		return "superseded"
	case AlreadySettled:
		return "already_settled"
	}
	return "unknown"
}

// Arbiter decides which in-flight response may update the visible outcome.
// Only the most recently dispatched token can ever be accepted, once.
type Arbiter struct {
	mu      sync.Mutex
	current Token
	state   filter.State
	phase   Phase
	cancel  context.CancelFunc
}

// NewArbiter creates an idle arbiter.
func NewArbiter() *Arbiter {
	return &Arbiter{phase: PhaseIdle}
}

// Dispatch mints the next token for s. A still-running previous request is
// cancelled best-effort; cancel (may be nil) is kept for the new one.
func (a *Arbiter) Dispatch(s filter.State, cancel context.CancelFunc) Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == PhaseDispatched {
		metrics.SearchCyclesTotal.WithLabelValues(metrics.EventSuperseded).Inc()
		if a.cancel != nil {
			a.cancel()
		}
	}
	a.current++
	a.state = s
	a.phase = PhaseDispatched
	a.cancel = cancel
	metrics.SearchCyclesTotal.WithLabelValues(metrics.EventDispatched).Inc()
	return a.current
}

// Settle records that tok resolved. The request context is released on acceptance.
func (a *Arbiter) Settle(tok Token) Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tok != a.current {
		return Superseded
	}
	if a.phase != PhaseDispatched {
		return AlreadySettled
	}
	a.phase = PhaseSettled
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	metrics.SearchCyclesTotal.WithLabelValues(metrics.EventSettled).Inc()
	return Accepted
}

// IsCurrent reports whether tok is the latest token and still in flight.
func (a *Arbiter) IsCurrent(tok Token) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return tok == a.current && a.phase == PhaseDispatched
}

// Current returns the latest token, the state it was dispatched for and its phase.
func (a *Arbiter) Current() (Token, filter.State, Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.state, a.phase
}

// Cancel aborts the in-flight request, if any, and settles it silently.
func (a *Arbiter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != PhaseDispatched {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.phase = PhaseSettled
}
