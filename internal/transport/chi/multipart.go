package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/xraysearch/internal/domain/record"
)

const maxUploadBytes = 32 << 20

// draftFromMultipart reads a record submission. The returned cleanup closes
// the uploaded image and removes temporary files.
func draftFromMultipart(r *http.Request) (record.Draft, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return record.Draft{}, noop, fmt.Errorf("invalid multipart body: %w", err)
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	d := record.Draft{
		PatientID:   r.FormValue("patient_id"),
		BodyPart:    r.FormValue("body_part"),
		ScanDate:    r.FormValue("scan_date"),
		Institution: r.FormValue("institution"),
		Description: r.FormValue("description"),
		Diagnosis:   r.FormValue("diagnosis"),
		Tags:        parseTags(r.FormValue("tags")),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return d, cleanup, nil
	case err != nil:
		cleanup()
		return record.Draft{}, noop, fmt.Errorf("invalid image: %w", err)
	}
	d.Image = file
	d.ImageName = header.Filename
	return d, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

// parseTags accepts a JSON list or a comma-separated string.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &list) == nil {
		return list
	}
	return strings.Split(raw, ",")
}
