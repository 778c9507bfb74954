package filter

import (
	"strings"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
)

// Field names a user-facing search constraint. The value doubles as the
// location query key.
type Field string

// Constraint fields, in display and serialization order.
const (
	FieldSearch      Field = "search"
	FieldBodyPart    Field = "body_part"
	FieldDiagnosis   Field = "diagnosis"
	FieldInstitution Field = "institution"
	FieldDateFrom    Field = "date_from"
	FieldDateTo      Field = "date_to"
	FieldTags        Field = "tags"
)

// Fields lists every constraint field in canonical order.
var Fields = []Field{
	FieldSearch, FieldBodyPart, FieldDiagnosis, FieldInstitution,
	FieldDateFrom, FieldDateTo, FieldTags,
}

var labels = map[Field]string{
	FieldSearch:      "Search",
	FieldBodyPart:    "Body Part",
	FieldDiagnosis:   "Diagnosis",
	FieldInstitution: "Institution",
	FieldDateFrom:    "From Date",
	FieldDateTo:      "To Date",
	FieldTags:        "Tags",
}

// ParseField resolves a query key to a Field.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	_, ok := labels[f]
	return f, ok
}

// Label returns the human-readable name of the field.
func (f Field) Label() string { return labels[f] }

// State is the full set of user-chosen constraints at one point in time.
// An empty string means "no constraint". Page applies to structured
// searches only; values <= 1 mean the first page.
type State struct {
	FreeText    string `json:"search,omitempty"`
	BodyPart    string `json:"body_part,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
	Institution string `json:"institution,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Page        int    `json:"page,omitempty"`
}

// Value returns the constraint stored for f.
func (s State) Value(f Field) string {
	switch f {
	case FieldSearch:
		return s.FreeText
	case FieldBodyPart:
		return s.BodyPart
	case FieldDiagnosis:
		return s.Diagnosis
	case FieldInstitution:
		return s.Institution
	case FieldDateFrom:
		return s.DateFrom
	case FieldDateTo:
		return s.DateTo
	case FieldTags:
		return s.Tags
	}
	return ""
}

func (s *State) set(f Field, v string) {
	switch f {
	case FieldSearch:
		s.FreeText = v
	case FieldBodyPart:
		s.BodyPart = v
	case FieldDiagnosis:
		s.Diagnosis = v
	case FieldInstitution:
		s.Institution = v
	case FieldDateFrom:
		s.DateFrom = v
	case FieldDateTo:
		s.DateTo = v
	case FieldTags:
		s.Tags = v
	}
}

// Normalize trims every constraint and folds first-page markers to zero.
func (s State) Normalize() State {
	out := s
	for _, f := range Fields {
		out.set(f, strings.TrimSpace(s.Value(f)))
	}
	if out.Page <= 1 {
		out.Page = 0
	}
	return out
}

// Equal reports structural equality after normalization.
func (s State) Equal(o State) bool {
	return s.Normalize() == o.Normalize()
}

// IsEmpty reports whether no constraint is set.
func (s State) IsEmpty() bool {
	return s.Normalize() == State{}
}

// Backend derives the backend that serves this state.
func (s State) Backend() backend.Choice {
	return backend.For(strings.TrimSpace(s.FreeText))
}

// Merge applies a partial update. Any constraint change without an explicit
// page resets pagination to the first page.
func (s State) Merge(p Partial) State {
	out := s.Normalize()
	changed := false
	for _, f := range Fields {
		v, ok := p.values[f]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if out.Value(f) != v {
			changed = true
		}
		out.set(f, v)
	}
	switch {
	case p.page != nil:
		out.Page = *p.page
	case changed:
		out.Page = 0
	}
	return out.Normalize()
}

// Active is one non-empty constraint, for display as a removable chip.
type Active struct {
	Field Field  `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ActiveFilters lists the non-empty constraints in canonical order.
func (s State) ActiveFilters() []Active {
	n := s.Normalize()
	var out []Active
	for _, f := range Fields {
		if v := n.Value(f); v != "" {
			out = append(out, Active{Field: f, Label: f.Label(), Value: v})
		}
	}
	return out
}

// Partial is an explicit user edit: only the fields it names change.
// The zero value changes nothing.
type Partial struct {
	values map[Field]string
	page   *int
}

// Set returns a copy of p that sets f to v. An empty v clears the field.
func (p Partial) Set(f Field, v string) Partial {
	out := p.clone()
	out.values[f] = v
	return out
}

// Clear returns a copy of p that removes the constraint on f.
func (p Partial) Clear(f Field) Partial { return p.Set(f, "") }

// WithPage returns a copy of p that moves to page n.
func (p Partial) WithPage(n int) Partial {
	out := p.clone()
	out.page = &n
	return out
}

// Fields lists the fields the partial touches, in canonical order.
func (p Partial) Fields() []Field {
	var out []Field
	for _, f := range Fields {
		if _, ok := p.values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (p Partial) clone() Partial {
	out := Partial{values: make(map[Field]string, len(p.values)+1), page: p.page}
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// IsEmpty reports whether the partial changes nothing.
func (p Partial) IsEmpty() bool {
	return len(p.values) == 0 && p.page == nil
}

// Replace builds a partial that overwrites every field with the values of s.
func Replace(s State) Partial {
	var p Partial
	for _, f := range Fields {
		p = p.Set(f, s.Value(f))
	}
	return p.WithPage(s.Page)
}
