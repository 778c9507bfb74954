// Package response holds the raw wire shapes returned by the catalog backends.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
)

// ID is a record identifier. The catalog emits numbers; strings are accepted too.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits canonical integer ids as numbers and everything else,
// including "007" and "+5", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Tags keeps the tag field exactly as received: a list or one delimited string.
type Tags struct {
	List   []string
	Text   string
	IsText bool
}

// UnmarshalJSON accepts null, a list of strings or a string.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Tags{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		return json.Unmarshal(data, &t.List)
	case data[0] == '"':
		t.IsText = true
		return json.Unmarshal(data, &t.Text)
	}
	return fmt.Errorf("tags: unexpected JSON %s", data)
}

// MarshalJSON writes the tags back in their received shape.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t.IsText {
		return json.Marshal(t.Text)
	}
	if t.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.List)
}

// Record is one catalog entry as either backend serializes it.
type Record struct {
	ID          ID       `json:"id"`
	PatientID   string   `json:"patient_id"`
	Image       *string  `json:"image,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	BodyPart    string   `json:"body_part"`
	ScanDate    string   `json:"scan_date"`
	Institution string   `json:"institution"`
	Description string   `json:"description,omitempty"`
	Diagnosis   string   `json:"diagnosis"`
	Tags        Tags     `json:"tags"`
	TagsDisplay string   `json:"tags_display,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// FullText is the relevance search payload.
// Older deployments report total and took instead of total_hits and took_ms.
type FullText struct {
	Results   []Record `json:"results"`
	TotalHits *int     `json:"total_hits,omitempty"`
	Total     *int     `json:"total,omitempty"`
	MaxScore  *float64 `json:"max_score,omitempty"`
	TookMs    *float64 `json:"took_ms,omitempty"`
	Took      *float64 `json:"took,omitempty"`
}

// Hits returns the reported hit count, falling back to the page length.
func (f FullText) Hits() int {
	switch {
	case f.TotalHits != nil:
		return *f.TotalHits
	case f.Total != nil:
		return *f.Total
	}
	return len(f.Results)
}

// ElapsedMs returns the measured search time, or nil when none was reported.
func (f FullText) ElapsedMs() *int64 {
	v := f.TookMs
	if v == nil {
		v = f.Took
	}
	if v == nil {
		return nil
	}
	ms := int64(math.Round(*v))
	return &ms
}

// Structured is the paginated records payload.
type Structured struct {
	Results  []Record `json:"results"`
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
}

// Response is a backend-tagged raw payload.
type Response struct {
	backend    backend.Choice
	fullText   FullText
	structured Structured
}

// FromFullText tags a full-text payload.
func FromFullText(f FullText) Response {
	return Response{backend: backend.FullText, fullText: f}
}

// FromStructured tags a structured payload.
func FromStructured(s Structured) Response {
	return Response{backend: backend.Structured, structured: s}
}

// Backend returns the tag.
func (r Response) Backend() backend.Choice { return r.backend }

// FullText returns the full-text payload; ok is false for other tags.
func (r Response) FullText() (FullText, bool) {
	return r.fullText, r.backend == backend.FullText
}

// Structured returns the structured payload; ok is false for other tags.
func (r Response) Structured() (Structured, bool) {
	return r.structured, r.backend == backend.Structured
}
