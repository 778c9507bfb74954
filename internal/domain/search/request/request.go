// Package request builds backend-specific catalog queries from a filter state.
package request

import (
	"net/url"
	"strconv"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
)

// DateRange is an inclusive scan-date range; either bound may be empty.
type DateRange struct {
	From string
	To   string
}

// Constraints are the attribute filters shared by both backends.
type Constraints struct {
	BodyPart    string
	Diagnosis   string
	Institution string
	Tags        string
	Scanned     DateRange
}

func constraintsOf(s filter.State) Constraints {
	return Constraints{
		BodyPart:    s.BodyPart,
		Diagnosis:   s.Diagnosis,
		Institution: s.Institution,
		Tags:        s.Tags,
		Scanned:     DateRange{From: s.DateFrom, To: s.DateTo},
	}
}

func (c Constraints) encode(v url.Values) {
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set(string(filter.FieldBodyPart), c.BodyPart)
	set(string(filter.FieldDiagnosis), c.Diagnosis)
	set(string(filter.FieldInstitution), c.Institution)
	set(string(filter.FieldDateFrom), c.Scanned.From)
	set(string(filter.FieldDateTo), c.Scanned.To)
	set(string(filter.FieldTags), c.Tags)
}

// FullText is a relevance query for the search endpoint.
type FullText struct {
	Q string
	Constraints
}

// Params encodes the query for GET /api/search/.
func (f FullText) Params() url.Values {
	v := url.Values{"q": {f.Q}}
	f.encode(v)
	return v
}

// Structured is a paginated field query for the records endpoint.
// Search carries the free-text term only on the degradation path.
type Structured struct {
	Search string
	Constraints
	Page int
}

// Params encodes the query for GET /api/xrays/.
func (s Structured) Params() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set(string(filter.FieldSearch), s.Search)
	}
	s.encode(v)
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	return v
}

// Request is a backend-tagged query. Exactly one payload matches the tag.
// Request values are comparable.
type Request struct {
	backend    backend.Choice
	fullText   FullText
	structured Structured
}

// NewFullText wraps a full-text payload.
func NewFullText(f FullText) Request {
	return Request{backend: backend.FullText, fullText: f}
}

// NewStructured wraps a structured payload.
func NewStructured(s Structured) Request {
	return Request{backend: backend.Structured, structured: s}
}

// Backend returns the tag.
func (r Request) Backend() backend.Choice { return r.backend }

// FullText returns the full-text payload; ok is false for other tags.
func (r Request) FullText() (FullText, bool) {
	return r.fullText, r.backend == backend.FullText
}

// Structured returns the structured payload; ok is false for other tags.
func (r Request) Structured() (Structured, bool) {
	return r.structured, r.backend == backend.Structured
}

// Route picks the backend for s and builds its request. FullText is chosen
// iff free text is present; page only applies to structured queries.
func Route(s filter.State) Request {
	n := s.Normalize()
	if n.Backend() == backend.FullText {
		return NewFullText(FullText{Q: n.FreeText, Constraints: constraintsOf(n)})
	}
	return NewStructured(Structured{Constraints: constraintsOf(n), Page: n.Page})
}

// Fallback rewrites a full-text request as the equivalent structured one,
// passing the free-text term as the structured search parameter.
func Fallback(r Request) (Request, bool) {
	f, ok := r.FullText()
	if !ok {
		return Request{}, false
	}
	return NewStructured(Structured{Search: f.Q, Constraints: f.Constraints}), true
}
