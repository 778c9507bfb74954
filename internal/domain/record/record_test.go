package record

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/xraysearch/internal/domain"
)

func validDraft() Draft {
	return Draft{
		PatientID:   "P001211",
		BodyPart:    "Chest",
		ScanDate:    "2024-03-01",
		Institution: "General Hospital",
		Diagnosis:   "Pneumonia",
		Tags:        []string{" lung ", "", "urgent"},
		ImageName:   "scan.png",
		Image:       strings.NewReader("png"),
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Draft)
		field string
	}{
		{"missing patient", func(d *Draft) { d.PatientID = " " }, "patient_id"},
		{"lowercase prefix", func(d *Draft) { d.PatientID = "p001" }, "patient_id"},
		{"no digits", func(d *Draft) { d.PatientID = "P" }, "patient_id"},
		{"letters after prefix", func(d *Draft) { d.PatientID = "P12a" }, "patient_id"},
		{"missing body part", func(d *Draft) { d.BodyPart = "" }, "body_part"},
		{"bad date", func(d *Draft) { d.ScanDate = "01/03/2024" }, "scan_date"},
		{"missing institution", func(d *Draft) { d.Institution = "" }, "institution"},
		{"missing diagnosis", func(d *Draft) { d.Diagnosis = "" }, "diagnosis"},
		{"missing image", func(d *Draft) { d.Image = nil }, "image"},
		{"missing image name", func(d *Draft) { d.ImageName = "" }, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.edit(&d)
			err := d.Validate()
			if !errors.Is(err, domain.ErrInvalidRecord) {
				t.Fatalf("error = %v, want ErrInvalidRecord", err)
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not a ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	n := validDraft().Normalized()
	if len(n.Tags) != 2 || n.Tags[0] != "lung" || n.Tags[1] != "urgent" {
		t.Errorf("Tags = %v", n.Tags)
	}
}

func TestIsSuggestionField(t *testing.T) {
	for _, f := range []string{"diagnosis", "institution", "tags"} {
		if !IsSuggestionField(f) {
			t.Errorf("%q should be a suggestion field", f)
		}
	}
	if IsSuggestionField("patient_id") {
		t.Error("patient_id is not a suggestion field")
	}
}
