package search

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/location"
)

// LocationSync keeps a session's shareable location in step with its filter state.
type LocationSync struct {
	mu      sync.Mutex
	writer  LocationWriter
	current string
	logger  *zap.Logger
}

// NewLocationSync creates a sync. A nil writer keeps the location in memory only.
func NewLocationSync(w LocationWriter, logger *zap.Logger) *LocationSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationSync{writer: w, logger: logger}
}

// Restore parses the initial location once. Malformed input degrades to the
// empty state and is logged, never returned.
func (l *LocationSync) Restore(query string) filter.State {
	s, err := location.Parse(query)
	if err != nil {
		l.logger.Warn("malformed location, starting from defaults",
			zap.String("location", query), zap.Error(err))
		s = filter.State{}
	}
	l.mu.Lock()
	l.current = location.Serialize(s)
	l.mu.Unlock()
	return s
}

// Commit rewrites the location for s and returns it.
func (l *LocationSync) Commit(s filter.State) string {
	loc := location.Serialize(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = loc
	if l.writer != nil {
		l.writer.Replace(loc)
	}
	return loc
}

// Location returns the last restored or committed location.
func (l *LocationSync) Location() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
