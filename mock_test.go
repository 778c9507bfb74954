package xraysearch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/xraysearch/internal/db"
	"github.com/kailas-cloud/xraysearch/internal/domain"
	domrec "github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/xraysearch/internal/usecase/health"
)

// --- catalogBackend fake ---

type fakeCatalog struct {
	mu            sync.Mutex
	fullText      response.FullText
	fullTextErr   error
	fullTextCalls int
	structured    response.Structured
	lastPage      int
	items         map[string]result.Item
	created       []domrec.Draft
	opts          domrec.Options
	stats         domrec.Stats
	pingErr       error
}

func (f *fakeCatalog) SearchFullText(_ context.Context, _ request.FullText) (response.FullText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullTextCalls++
	return f.fullText, f.fullTextErr
}

func (f *fakeCatalog) SearchStructured(_ context.Context, req request.Structured) (response.Structured, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = req.Page
	return f.structured, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (result.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return result.Item{}, domain.ErrNotFound
	}
	return it, nil
}

func (f *fakeCatalog) Create(_ context.Context, d domrec.Draft) (result.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	return result.Item{ID: "77", PatientID: d.PatientID, BodyPart: d.BodyPart, Tags: d.Tags}, nil
}

func (f *fakeCatalog) Options(_ context.Context) (domrec.Options, error) {
	return f.opts, nil
}

func (f *fakeCatalog) Suggestions(_ context.Context, field, _ string) []string {
	if field == "tags" {
		return []string{"urgent"}
	}
	return []string{}
}

func (f *fakeCatalog) Stats(_ context.Context) (domrec.Stats, error) { return f.stats, nil }

func (f *fakeCatalog) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeCatalog) fullTextCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullTextCalls
}

func (f *fakeCatalog) setStructured(page response.Structured) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.structured = page
}

func (f *fakeCatalog) page() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPage
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- db.Store fake ---

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Ping(_ context.Context) error { return nil }

func (m *memStore) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

func (m *memStore) Close() {}

// --- helpers ---

func newTestClient(t *testing.T, fc *fakeCatalog) *Client {
	t.Helper()
	if fc.items == nil {
		fc.items = map[string]result.Item{}
	}
	obs, err := newObserver(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return wireClient(fc, nil, &clientConfig{searchTimeout: 2 * time.Second}, obs)
}

func newCachedTestClient(t *testing.T, fc *fakeCatalog, store db.Store) *Client {
	t.Helper()
	if fc.items == nil {
		fc.items = map[string]result.Item{}
	}
	obs, err := newObserver(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return wireClient(fc, &cacheWiring{store: store}, &clientConfig{searchTimeout: 2 * time.Second}, obs)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func chestPage(ids ...string) response.Structured {
	recs := make([]response.Record, len(ids))
	for i, id := range ids {
		recs[i] = response.Record{ID: response.ID(id), BodyPart: "Chest"}
	}
	return response.Structured{Results: recs, Count: len(ids)}
}
