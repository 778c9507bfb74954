package chi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
)

// OrchestratorFactory builds the orchestrator for a new session. The
// LocationWriter receives every committed location of that session.
type OrchestratorFactory func(loc searchuc.LocationWriter) *searchuc.Orchestrator

// Session is one browsing session held by the shell.
type Session struct {
	ID   string
	Orch *searchuc.Orchestrator

	mu   sync.Mutex
	seen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.seen = now
	s.mu.Unlock()
}

func (s *Session) lastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

// Registry holds the live sessions.
type Registry struct {
	factory OrchestratorFactory
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(factory OrchestratorFactory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factory:  factory,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session from a location query string.
func (r *Registry) Create(ctx context.Context, location string) *Session {
	s := &Session{ID: uuid.NewString(), seen: r.now()}
	s.Orch = r.factory(searchuc.LocationWriterFunc(func(loc string) {
		r.logger.Debug("Location replaced", zap.String("session_id", s.ID), zap.String("location", loc))
	}))

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))

	s.Orch.Start(ctx, location)
	r.logger.Debug("Session created", zap.String("session_id", s.ID), zap.String("location", s.Orch.Location()))
	return s
}

// Get returns a session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	s.touch(r.now())
	return s, nil
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	metrics.ActiveSessions.Set(float64(n))
	s.Orch.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions unused for longer than idle and returns how many
// were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.lastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	for _, s := range stale {
		s.Orch.Close()
		r.logger.Debug("Session expired", zap.String("session_id", s.ID))
	}
	return len(stale)
}

// RunSweeper sweeps idle sessions every interval until ctx ends.
func (r *Registry) RunSweeper(ctx context.Context, idle, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Info("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	metrics.ActiveSessions.Set(0)
	for _, s := range all {
		s.Orch.Close()
	}
}
