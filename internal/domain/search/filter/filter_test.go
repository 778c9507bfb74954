package filter

import (
	"testing"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
)

func TestNormalize(t *testing.T) {
	s := State{FreeText: "  pneumonia ", BodyPart: "\tchest", Page: 1}
	n := s.Normalize()
	if n.FreeText != "pneumonia" {
		t.Errorf("FreeText = %q", n.FreeText)
	}
	if n.BodyPart != "chest" {
		t.Errorf("BodyPart = %q", n.BodyPart)
	}
	if n.Page != 0 {
		t.Errorf("Page = %d, want 0", n.Page)
	}
}

func TestNormalize_NegativePage(t *testing.T) {
	if got := (State{Page: -3}).Normalize().Page; got != 0 {
		t.Errorf("Page = %d, want 0", got)
	}
}

func TestEqual(t *testing.T) {
	a := State{FreeText: "x ", Page: 1}
	b := State{FreeText: "x"}
	if !a.Equal(b) {
		t.Error("expected states to be equal after normalization")
	}
	if a.Equal(State{FreeText: "y"}) {
		t.Error("expected states to differ")
	}
}

func TestIsEmpty(t *testing.T) {
	if !(State{}).IsEmpty() {
		t.Error("zero state should be empty")
	}
	if !(State{FreeText: "   ", Page: 1}).IsEmpty() {
		t.Error("whitespace-only state should be empty")
	}
	if (State{Tags: "a"}).IsEmpty() {
		t.Error("state with tags should not be empty")
	}
}

func TestBackend(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  backend.Choice
	}{
		{"empty", State{}, backend.Structured},
		{"whitespace", State{FreeText: "   "}, backend.Structured},
		{"constraints only", State{BodyPart: "chest"}, backend.Structured},
		{"free text", State{FreeText: "fracture"}, backend.FullText},
		{"free text with constraints", State{FreeText: "fracture", BodyPart: "arm"}, backend.FullText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Backend(); got != tt.want {
				t.Errorf("Backend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge_OnlyTouchedFields(t *testing.T) {
	s := State{FreeText: "a", BodyPart: "chest", Institution: "General"}
	got := s.Merge(Partial{}.Set(FieldBodyPart, "knee"))
	want := State{FreeText: "a", BodyPart: "knee", Institution: "General"}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMerge_ClearField(t *testing.T) {
	s := State{FreeText: "a", Tags: "x"}
	got := s.Merge(Partial{}.Clear(FieldSearch))
	if got.FreeText != "" || got.Tags != "x" {
		t.Errorf("Merge = %+v", got)
	}
	if got.Backend() != backend.Structured {
		t.Errorf("Backend() = %q after clearing free text", got.Backend())
	}
}

func TestMerge_ChangeResetsPage(t *testing.T) {
	s := State{BodyPart: "chest", Page: 4}
	got := s.Merge(Partial{}.Set(FieldBodyPart, "knee"))
	if got.Page != 0 {
		t.Errorf("Page = %d, want reset", got.Page)
	}
}

func TestMerge_SameValueKeepsPage(t *testing.T) {
	s := State{BodyPart: "chest", Page: 4}
	got := s.Merge(Partial{}.Set(FieldBodyPart, " chest "))
	if got.Page != 4 {
		t.Errorf("Page = %d, want 4", got.Page)
	}
}

func TestMerge_ExplicitPage(t *testing.T) {
	s := State{BodyPart: "chest"}
	got := s.Merge(Partial{}.WithPage(3))
	if got.Page != 3 || got.BodyPart != "chest" {
		t.Errorf("Merge = %+v", got)
	}
	got = got.Merge(Partial{}.Set(FieldTags, "x").WithPage(2))
	if got.Page != 2 {
		t.Errorf("Page = %d, want explicit page to win", got.Page)
	}
}

func TestMerge_EmptyPartial(t *testing.T) {
	s := State{Diagnosis: "fracture", Page: 2}
	if got := s.Merge(Partial{}); got != s {
		t.Errorf("Merge(empty) = %+v, want %+v", got, s)
	}
}

func TestPartial_CopyOnWrite(t *testing.T) {
	base := Partial{}.Set(FieldBodyPart, "chest")
	derived := base.Set(FieldTags, "x")
	if len(base.Fields()) != 1 {
		t.Errorf("base mutated: %v", base.Fields())
	}
	if len(derived.Fields()) != 2 {
		t.Errorf("derived fields = %v", derived.Fields())
	}
	if !(Partial{}).IsEmpty() {
		t.Error("zero partial should be empty")
	}
	if (Partial{}).WithPage(2).IsEmpty() {
		t.Error("page-only partial should not be empty")
	}
}

func TestReplace(t *testing.T) {
	target := State{FreeText: "b", DateFrom: "2024-01-01", Page: 2}
	got := State{BodyPart: "chest", FreeText: "a"}.Merge(Replace(target))
	if got != target {
		t.Errorf("Merge(Replace) = %+v, want %+v", got, target)
	}
}

func TestActiveFilters(t *testing.T) {
	s := State{FreeText: "cough", DateTo: "2024-02-01", Tags: " urgent "}
	got := s.ActiveFilters()
	want := []Active{
		{Field: FieldSearch, Label: "Search", Value: "cough"},
		{Field: FieldDateTo, Label: "To Date", Value: "2024-02-01"},
		{Field: FieldTags, Label: "Tags", Value: "urgent"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if (State{}).ActiveFilters() != nil {
		t.Error("empty state should have no active filters")
	}
}

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, ok := ParseField(string(f))
		if !ok || got != f {
			t.Errorf("ParseField(%q) = %q, %v", f, got, ok)
		}
	}
	if _, ok := ParseField("page"); ok {
		t.Error("page is not a constraint field")
	}
}
