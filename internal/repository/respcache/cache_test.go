package respcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

func TestStructured_MissThenHit(t *testing.T) {
	ms := newMemStore()
	cache, counter := newTestCache(t, ms)
	inner := &mockStructured{resp: response.Structured{
		Count:   2,
		Results: []response.Record{{ID: "1", Tags: response.Tags{Text: "a b", IsText: true}}},
	}}
	s := cache.Structured(inner)
	req := request.Structured{Constraints: request.Constraints{BodyPart: "Chest"}, Page: 2}
	ctx := context.Background()

	first, err := s.SearchStructured(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.SearchStructured(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if second.Count != first.Count || !second.Results[0].Tags.IsText || second.Results[0].ID != "1" {
		t.Errorf("cached = %+v", second)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("structured", "miss")); got != 1 {
		t.Errorf("misses = %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("structured", "hit")); got != 1 {
		t.Errorf("hits = %f", got)
	}
	for k, ttl := range ms.ttls {
		if ttl != time.Minute {
			t.Errorf("ttl for %s = %v", k, ttl)
		}
	}
}

func TestStructured_ZeroPaddedIDCached(t *testing.T) {
	cache, _ := newTestCache(t, newMemStore())
	inner := &mockStructured{resp: response.Structured{
		Count:   1,
		Results: []response.Record{{ID: "007"}},
	}}
	s := cache.Structured(inner)
	ctx := context.Background()

	_, _ = s.SearchStructured(ctx, request.Structured{})
	got, err := s.SearchStructured(ctx, request.Structured{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || got.Results[0].ID != "007" {
		t.Errorf("id = %q after %d inner calls", got.Results[0].ID, inner.calls)
	}
}

func TestStructured_KeyDependsOnParams(t *testing.T) {
	cache, _ := newTestCache(t, newMemStore())
	inner := &mockStructured{}
	s := cache.Structured(inner)
	ctx := context.Background()

	_, _ = s.SearchStructured(ctx, request.Structured{Page: 2})
	_, _ = s.SearchStructured(ctx, request.Structured{Page: 3})
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestStructured_ErrorNotCached(t *testing.T) {
	ms := newMemStore()
	cache, _ := newTestCache(t, ms)
	inner := &mockStructured{err: domain.ErrTransport}
	s := cache.Structured(inner)

	if _, err := s.SearchStructured(context.Background(), request.Structured{}); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("error = %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("failed response was cached")
	}
}

func TestStructured_StoreFailuresIgnored(t *testing.T) {
	ms := newMemStore()
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")
	cache, _ := newTestCache(t, ms)
	inner := &mockStructured{resp: response.Structured{Count: 9}}

	got, err := cache.Structured(inner).SearchStructured(context.Background(), request.Structured{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 9 {
		t.Errorf("Count = %d", got.Count)
	}
}

func TestStructured_CorruptEntryRefetched(t *testing.T) {
	ms := newMemStore()
	cache, _ := newTestCache(t, ms)
	inner := &mockStructured{resp: response.Structured{Count: 1}}
	s := cache.Structured(inner)
	ms.data[cache.structuredKey("0", request.Structured{}.Params().Encode())] = []byte("not json")

	got, err := s.SearchStructured(context.Background(), request.Structured{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 1 || inner.calls != 1 {
		t.Errorf("got %+v after %d calls", got, inner.calls)
	}
}

func TestOptions_CacheAndInvalidate(t *testing.T) {
	ms := newMemStore()
	cache, _ := newTestCache(t, ms)
	inner := &mockOptions{opts: record.Options{BodyParts: []string{"Chest"}}}
	o := cache.Options(inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := o.Options(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.BodyParts) != 1 {
			t.Errorf("BodyParts = %v", got.BodyParts)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if _, ok := ms.data["xraysearch:options"]; !ok {
		t.Errorf("expected options key, have %v", ms.data)
	}

	cache.Invalidate(ctx)
	if _, err := o.Options(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls after invalidate = %d, want 2", inner.calls)
	}
}

func TestStructured_InvalidateRefetches(t *testing.T) {
	ms := newMemStore()
	cache, _ := newTestCache(t, ms)
	inner := &mockStructured{resp: response.Structured{Count: 1}}
	s := cache.Structured(inner)
	req := request.Structured{Constraints: request.Constraints{BodyPart: "Chest"}}
	ctx := context.Background()

	if _, err := s.SearchStructured(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SearchStructured(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls before invalidate = %d, want 1", inner.calls)
	}

	cache.Invalidate(ctx)
	inner.resp = response.Structured{Count: 2}

	got, err := s.SearchStructured(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 || got.Count != 2 {
		t.Errorf("after invalidate: count = %d, inner calls = %d", got.Count, inner.calls)
	}
	if ttl := ms.ttls["xraysearch:gen"]; ttl != 0 {
		t.Errorf("generation ttl = %v, want no expiry", ttl)
	}
}

func TestStructured_GenerationUnreadableSkipsCache(t *testing.T) {
	ms := newMemStore()
	ms.getErr = errors.New("connection refused")
	cache, counter := newTestCache(t, ms)
	inner := &mockStructured{resp: response.Structured{Count: 3}}

	got, err := cache.Structured(inner).SearchStructured(context.Background(), request.Structured{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 3 || len(ms.data) != 0 {
		t.Errorf("count = %d, stored %d entries", got.Count, len(ms.data))
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("structured", "miss")); got != 1 {
		t.Errorf("misses = %f", got)
	}
}

func TestInvalidate_StoreErrorIgnored(t *testing.T) {
	ms := newMemStore()
	ms.delErr = errors.New("readonly")
	ms.setErr = errors.New("readonly")
	cache, _ := newTestCache(t, ms)
	cache.Invalidate(context.Background())
}

func TestKey(t *testing.T) {
	cache := New(newMemStore(), 0, "custom:", nil, nil)
	if got := cache.key(kindOptions, ""); got != "custom:options" {
		t.Errorf("key = %q", got)
	}
	if got := cache.key(kindGeneration, ""); got != "custom:gen" {
		t.Errorf("generation key = %q", got)
	}
	a := cache.structuredKey("0", "page=2")
	b := cache.structuredKey("0", "page=3")
	c := cache.structuredKey("1", "page=2")
	if a == b || a == c || len(a) != len("custom:structured:")+64 {
		t.Errorf("keys = %q, %q, %q", a, b, c)
	}
}
