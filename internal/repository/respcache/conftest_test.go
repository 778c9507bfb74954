package respcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/db"
	"github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

// memStore implements the consumer interface for tests.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

type mockStructured struct {
	resp  response.Structured
	err   error
	calls int
}

func (m *mockStructured) SearchStructured(_ context.Context, _ request.Structured) (response.Structured, error) {
	m.calls++
	return m.resp, m.err
}

type mockOptions struct {
	opts  record.Options
	err   error
	calls int
}

func (m *mockOptions) Options(_ context.Context) (record.Options, error) {
	m.calls++
	return m.opts, m.err
}

func newTestCache(t *testing.T, s store) (*Cache, *prometheus.CounterVec) {
	t.Helper()
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_cache_total", Help: "test"},
		[]string{"kind", "result"},
	)
	return New(s, time.Minute, "", counter, zap.NewNop()), counter
}
