package xraysearch

import (
	"io"

	"github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
)

// Backend names the catalog search backend that produced an outcome.
type Backend string

const (
	BackendFullText   Backend = Backend(backend.FullText)
	BackendStructured Backend = Backend(backend.Structured)
)

// Status is the lifecycle state of a session outcome.
type Status string

const (
	StatusLoading Status = Status(result.StatusLoading)
	StatusReady   Status = Status(result.StatusReady)
	StatusFailed  Status = Status(result.StatusFailed)
)

// ErrorKind classifies a failed outcome.
type ErrorKind string

const (
	ErrorTransport  ErrorKind = ErrorKind(result.ErrorTransport)
	ErrorDecode     ErrorKind = ErrorKind(result.ErrorDecode)
	ErrorTimeout    ErrorKind = ErrorKind(result.ErrorTimeout)
	ErrorUnroutable ErrorKind = ErrorKind(result.ErrorUnroutable)
)

// Field is a filterable search attribute.
type Field string

const (
	FieldSearch      Field = Field(filter.FieldSearch)
	FieldBodyPart    Field = Field(filter.FieldBodyPart)
	FieldDiagnosis   Field = Field(filter.FieldDiagnosis)
	FieldInstitution Field = Field(filter.FieldInstitution)
	FieldDateFrom    Field = Field(filter.FieldDateFrom)
	FieldDateTo      Field = Field(filter.FieldDateTo)
	FieldTags        Field = Field(filter.FieldTags)
)

// Filter is a snapshot of a session's constraints. Page 0 is the first page.
type Filter struct {
	Search      string `json:"search,omitempty"`
	BodyPart    string `json:"body_part,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
	Institution string `json:"institution,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Page        int    `json:"page,omitempty"`
}

// ActiveFilter is one non-empty constraint, labeled for display.
type ActiveFilter struct {
	Field Field  `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Item is one imaging record. ImageURL is empty when the record has no image.
type Item struct {
	ID          string   `json:"id"`
	PatientID   string   `json:"patient_id"`
	BodyPart    string   `json:"body_part"`
	Diagnosis   string   `json:"diagnosis"`
	Institution string   `json:"institution"`
	ScanDate    string   `json:"scan_date"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Tags        []string `json:"tags"`
	Score       *float64 `json:"score,omitempty"`
}

// Outcome is the result of a session's latest search cycle.
type Outcome struct {
	Status     Status    `json:"status"`
	Items      []Item    `json:"items"`
	TotalCount int       `json:"total_count"`
	ElapsedMs  *int64    `json:"elapsed_ms,omitempty"`
	Source     Backend   `json:"source_backend"`
	Error      ErrorKind `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Ready reports whether the outcome carries results.
func (o Outcome) Ready() bool { return o.Status == StatusReady }

// Options lists the values offered by the filter dropdowns.
type Options struct {
	BodyParts    []string `json:"body_parts"`
	Institutions []string `json:"institutions"`
	Diagnoses    []string `json:"diagnoses"`
}

// Stats summarizes the catalog.
type Stats struct {
	TotalScans              int            `json:"total_scans"`
	BodyPartDistribution    map[string]int `json:"body_part_distribution"`
	InstitutionDistribution map[string]int `json:"institution_distribution"`
	RecentScans30Days       int            `json:"recent_scans_30_days"`
}

// Draft is a record submission. ScanDate uses the YYYY-MM-DD layout and
// PatientID the P<digits> form.
type Draft struct {
	PatientID   string
	BodyPart    string
	ScanDate    string
	Institution string
	Description string
	Diagnosis   string
	Tags        []string
	ImageName   string
	Image       io.Reader
}

// --- Converters ---

func filterFromDomain(s filter.State) Filter {
	return Filter{
		Search:      s.FreeText,
		BodyPart:    s.BodyPart,
		Diagnosis:   s.Diagnosis,
		Institution: s.Institution,
		DateFrom:    s.DateFrom,
		DateTo:      s.DateTo,
		Tags:        s.Tags,
		Page:        s.Page,
	}
}

func (f Filter) toDomain() filter.State {
	return filter.State{
		FreeText:    f.Search,
		BodyPart:    f.BodyPart,
		Diagnosis:   f.Diagnosis,
		Institution: f.Institution,
		DateFrom:    f.DateFrom,
		DateTo:      f.DateTo,
		Tags:        f.Tags,
		Page:        f.Page,
	}
}

func activeFromDomain(in []filter.Active) []ActiveFilter {
	out := make([]ActiveFilter, len(in))
	for i, a := range in {
		out[i] = ActiveFilter{Field: Field(a.Field), Label: a.Label, Value: a.Value}
	}
	return out
}

func itemFromDomain(it result.Item) Item {
	u, _ := it.Image.URL()
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return Item{
		ID:          it.ID,
		PatientID:   it.PatientID,
		BodyPart:    it.BodyPart,
		Diagnosis:   it.Diagnosis,
		Institution: it.Institution,
		ScanDate:    it.ScanDate,
		Description: it.Description,
		ImageURL:    u,
		Tags:        tags,
		Score:       it.Score,
	}
}

func outcomeFromDomain(o result.Outcome) Outcome {
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemFromDomain(it)
	}
	return Outcome{
		Status:     Status(o.Status),
		Items:      items,
		TotalCount: o.TotalCount,
		ElapsedMs:  o.ElapsedMs,
		Source:     Backend(o.Source),
		Error:      ErrorKind(o.Error),
		Message:    o.Message,
	}
}

func optionsFromDomain(o record.Options) Options {
	return Options{BodyParts: o.BodyParts, Institutions: o.Institutions, Diagnoses: o.Diagnoses}
}

func statsFromDomain(s record.Stats) Stats {
	return Stats{
		TotalScans:              s.TotalScans,
		BodyPartDistribution:    s.BodyPartDistribution,
		InstitutionDistribution: s.InstitutionDistribution,
		RecentScans30Days:       s.RecentScans30Days,
	}
}

func (d Draft) toDomain() record.Draft {
	return record.Draft{
		PatientID:   d.PatientID,
		BodyPart:    d.BodyPart,
		ScanDate:    d.ScanDate,
		Institution: d.Institution,
		Description: d.Description,
		Diagnosis:   d.Diagnosis,
		Tags:        d.Tags,
		ImageName:   d.ImageName,
		Image:       d.Image,
	}
}
