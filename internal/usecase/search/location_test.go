package search

import (
	"testing"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
)

func TestLocationSync_Restore(t *testing.T) {
	l := NewLocationSync(nil, nil)
	s := l.Restore("?diagnosis=Fracture&utm=x")
	if s != (filter.State{Diagnosis: "Fracture"}) {
		t.Errorf("Restore = %+v", s)
	}
	if l.Location() != "diagnosis=Fracture" {
		t.Errorf("Location() = %q", l.Location())
	}
}

func TestLocationSync_RestoreMalformed(t *testing.T) {
	w := &recordingWriter{}
	l := NewLocationSync(w, nil)
	if s := l.Restore("page=abc"); !s.IsEmpty() {
		t.Errorf("Restore = %+v, want empty", s)
	}
	if len(w.all()) != 0 {
		t.Error("Restore must not rewrite the location")
	}
}

func TestLocationSync_Commit(t *testing.T) {
	var got []string
	l := NewLocationSync(LocationWriterFunc(func(loc string) { got = append(got, loc) }), nil)
	loc := l.Commit(filter.State{FreeText: "pneumonia", Tags: ""})
	if loc != "search=pneumonia" {
		t.Errorf("Commit = %q", loc)
	}
	l.Commit(filter.State{})
	if len(got) != 2 || got[1] != "" {
		t.Errorf("writes = %q", got)
	}
	if l.Location() != "" {
		t.Errorf("Location() = %q", l.Location())
	}
}
