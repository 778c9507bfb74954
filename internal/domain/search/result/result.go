// Package result holds the presentation-ready search outcome and the
// reconciler that builds it from either backend's payload.
package result

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

// Status is the lifecycle stage of an outcome.
type Status string

// Outcome statuses.
const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// ErrorKind classifies a failed outcome.
type ErrorKind string

// Error kinds.
const (
	ErrorTransport  ErrorKind = "transport"
	ErrorDecode     ErrorKind = "decode"
	ErrorTimeout    ErrorKind = "timeout"
	ErrorUnroutable ErrorKind = "unroutable"
)

// KindOf classifies err. Unknown errors count as transport failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, domain.ErrDecode):
		return ErrorDecode
	case errors.Is(err, domain.ErrUnroutable):
		return ErrorUnroutable
	}
	return ErrorTransport
}

// ImageRef points at a record's image. The zero value is NoImage.
type ImageRef struct {
	url string
}

// NoImage marks a record without an image.
var NoImage = ImageRef{}

// NewImageRef wraps a URL; blank input yields NoImage.
func NewImageRef(u string) ImageRef {
	return ImageRef{url: strings.TrimSpace(u)}
}

// URL returns the image location; ok is false for NoImage.
func (r ImageRef) URL() (string, bool) { return r.url, r.url != "" }

// MarshalJSON writes null for NoImage.
func (r ImageRef) MarshalJSON() ([]byte, error) {
	if r.url == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.url)
}

// UnmarshalJSON reads null or a string.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*r = NoImage
		return nil
	}
	*r = NewImageRef(*s)
	return nil
}

// Item is one normalized record.
type Item struct {
	ID          string   `json:"id"`
	PatientID   string   `json:"patient_id"`
	BodyPart    string   `json:"body_part"`
	Diagnosis   string   `json:"diagnosis"`
	Institution string   `json:"institution"`
	ScanDate    string   `json:"scan_date"`
	Description string   `json:"description,omitempty"`
	Image       ImageRef `json:"image"`
	Tags        []string `json:"tags"`
	Score       *float64 `json:"score,omitempty"`
}

// Outcome is the result of one search cycle. Items and TotalCount are only
// meaningful when Status is StatusReady. ElapsedMs is nil when the backend
// does not measure time.
type Outcome struct {
	Status     Status         `json:"status"`
	Items      []Item         `json:"items"`
	TotalCount int            `json:"total_count"`
	ElapsedMs  *int64         `json:"elapsed_ms,omitempty"`
	Source     backend.Choice `json:"source_backend"`
	Error      ErrorKind      `json:"error,omitempty"`
	Message    string         `json:"message,omitempty"`
	Token      uint64         `json:"token"`
}

// Loading builds the placeholder shown while a request for src is in flight.
func Loading(src backend.Choice) Outcome {
	return Outcome{Status: StatusLoading, Items: []Item{}, Source: src}
}

// Failure builds a failed outcome with no partial results.
func Failure(src backend.Choice, kind ErrorKind, msg string) Outcome {
	return Outcome{Status: StatusFailed, Items: []Item{}, Source: src, Error: kind, Message: msg}
}

// Ready reports whether the outcome carries results.
func (o Outcome) Ready() bool { return o.Status == StatusReady }

// Normalize reconciles a backend payload or error into an Outcome.
// It never panics; src labels the outcome even when raw is for another
// backend, which is how fallback results are attributed.
func Normalize(src backend.Choice, raw response.Response, err error) Outcome {
	if err != nil {
		return Failure(src, KindOf(err), err.Error())
	}
	switch raw.Backend() {
	case backend.FullText:
		ft, _ := raw.FullText()
		return Outcome{
			Status:     StatusReady,
			Items:      fromRecords(ft.Results),
			TotalCount: ft.Hits(),
			ElapsedMs:  ft.ElapsedMs(),
			Source:     src,
		}
	case backend.Structured:
		st, _ := raw.Structured()
		return Outcome{
			Status:     StatusReady,
			Items:      fromRecords(st.Results),
			TotalCount: st.Count,
			Source:     src,
		}
	}
	return Failure(src, ErrorUnroutable, domain.ErrUnroutable.Error())
}

func fromRecords(recs []response.Record) []Item {
	items := make([]Item, 0, len(recs))
	for i := range recs {
		items = append(items, FromRecord(recs[i]))
	}
	return items
}

// FromRecord normalizes a single wire record.
func FromRecord(r response.Record) Item {
	img := NoImage
	switch {
	case r.ImageURL != nil && strings.TrimSpace(*r.ImageURL) != "":
		img = NewImageRef(*r.ImageURL)
	case r.Image != nil:
		img = NewImageRef(*r.Image)
	}
	return Item{
		ID:          string(r.ID),
		PatientID:   r.PatientID,
		BodyPart:    r.BodyPart,
		Diagnosis:   r.Diagnosis,
		Institution: r.Institution,
		ScanDate:    r.ScanDate,
		Description: r.Description,
		Image:       img,
		Tags:        NormalizeTags(r.Tags),
		Score:       r.Score,
	}
}

// NormalizeTags returns tags as an ordered list. A delimited string is split
// on whitespace; empty tokens are dropped from either shape.
func NormalizeTags(t response.Tags) []string {
	if t.IsText {
		return append([]string{}, strings.Fields(t.Text)...)
	}
	out := make([]string, 0, len(t.List))
	for _, tag := range t.List {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
