// Package record models catalog submissions and catalog-wide lookups.
package record

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/xraysearch/internal/domain"
)

// ScanDateLayout is the wire format of scan dates.
const ScanDateLayout = "2006-01-02"

var patientIDPattern = regexp.MustCompile(`^P\d+$`)

// Draft is a new record awaiting submission.
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

// Normalized returns a copy with trimmed fields and empty tags dropped.
func (d Draft) Normalized() Draft {
	out := d
	out.PatientID = strings.TrimSpace(d.PatientID)
	out.BodyPart = strings.TrimSpace(d.BodyPart)
	out.ScanDate = strings.TrimSpace(d.ScanDate)
	out.Institution = strings.TrimSpace(d.Institution)
	out.Description = strings.TrimSpace(d.Description)
	out.Diagnosis = strings.TrimSpace(d.Diagnosis)
	out.ImageName = strings.TrimSpace(d.ImageName)
	out.Tags = make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		if t = strings.TrimSpace(t); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}
	return out
}

// Validate checks the draft against the catalog's acceptance rules.
// The returned error wraps domain.ErrInvalidRecord.
func (d Draft) Validate() error {
	n := d.Normalized()
	required := []struct{ field, value string }{
		{"patient_id", n.PatientID},
		{"body_part", n.BodyPart},
		{"scan_date", n.ScanDate},
		{"institution", n.Institution},
		{"diagnosis", n.Diagnosis},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.NewValidationError(r.field, "is required")
		}
	}
	if !patientIDPattern.MatchString(n.PatientID) {
		return domain.NewValidationError("patient_id",
			"must start with P followed by numbers (e.g. P001211)")
	}
	if _, err := time.Parse(ScanDateLayout, n.ScanDate); err != nil {
		return domain.NewValidationError("scan_date", "must be YYYY-MM-DD")
	}
	if n.Image == nil || n.ImageName == "" {
		return domain.NewValidationError("image", "is required")
	}
	return nil
}

// Options lists the distinct values offered by the filter dropdowns.
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

// SuggestionFields are the fields the suggestion endpoint completes.
var SuggestionFields = []string{"diagnosis", "institution", "tags"}

// IsSuggestionField reports whether field can be completed.
func IsSuggestionField(field string) bool {
	for _, f := range SuggestionFields {
		if f == field {
			return true
		}
	}
	return false
}
