package chi

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	domrec "github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/xraysearch/internal/usecase/health"
	recorduc "github.com/kailas-cloud/xraysearch/internal/usecase/record"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
)

// fakeCatalog serves both search backends and the record endpoints.
type fakeCatalog struct {
	mu          sync.Mutex
	fullText    response.FullText
	fullTextErr error
	structured  response.Structured
	items       map[string]result.Item
	created     []domrec.Draft
	createdBody []byte
	createErr   error
	opts        domrec.Options
	optsErr     error
	stats       domrec.Stats
	pingErr     error
}

func (f *fakeCatalog) SearchFullText(_ context.Context, _ request.FullText) (response.FullText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullText, f.fullTextErr
}

func (f *fakeCatalog) SearchStructured(_ context.Context, _ request.Structured) (response.Structured, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.structured, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (result.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return result.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeCatalog) Create(_ context.Context, d domrec.Draft) (result.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return result.Item{}, f.createErr
	}
	body, _ := io.ReadAll(d.Image)
	f.createdBody = body
	f.created = append(f.created, d)
	return result.Item{ID: "101", PatientID: d.PatientID, BodyPart: d.BodyPart, Tags: d.Tags}, nil
}

func (f *fakeCatalog) Options(_ context.Context) (domrec.Options, error) {
	return f.opts, f.optsErr
}

func (f *fakeCatalog) Suggestions(_ context.Context, field, text string) []string {
	if field == "diagnosis" && text != "" {
		return []string{"Fracture", "Fibrosis"}
	}
	return []string{}
}

func (f *fakeCatalog) Stats(_ context.Context) (domrec.Stats, error) { return f.stats, nil }

func (f *fakeCatalog) Ping(_ context.Context) error { return f.pingErr }

type testEnv struct {
	catalog  *fakeCatalog
	registry *Registry
	server   *Server
	http     *httptest.Server
}

func newTestEnv(t *testing.T, fc *fakeCatalog) *testEnv {
	t.Helper()
	if fc.items == nil {
		fc.items = map[string]result.Item{}
	}
	reg := NewRegistry(func(loc searchuc.LocationWriter) *searchuc.Orchestrator {
		return searchuc.New(fc, fc, searchuc.NewLocationSync(loc, nil), searchuc.WithTimeout(2*time.Second))
	}, nil)
	srv := NewServer(reg, recorduc.New(fc, nil, nil), healthuc.New(fc, nil), nil)
	ts := httptest.NewServer(NewRouter(srv, RouterOptions{MetricsPath: "/metrics"}))
	t.Cleanup(func() {
		ts.Close()
		reg.Close()
	})
	return &testEnv{catalog: fc, registry: reg, server: srv, http: ts}
}

// waitSettled blocks until the session's visible outcome leaves loading.
func waitSettled(t *testing.T, orch *searchuc.Orchestrator) result.Outcome {
	t.Helper()
	ch, unsubscribe := orch.Subscribe()
	defer unsubscribe()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case out, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if out.Status != result.StatusLoading {
				return out
			}
		case <-timeout:
			t.Fatal("timed out waiting for outcome")
		}
	}
}
