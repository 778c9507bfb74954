package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
)

// Get fetches one record. A missing record matches domain.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (result.Item, error) {
	var rec response.Record
	path := pathRecords + url.PathEscape(id) + "/"
	if err := c.getJSON(ctx, opDetail, path, nil, &rec); err != nil {
		return result.Item{}, err
	}
	return result.FromRecord(rec), nil
}

// Create submits a validated draft as multipart form data.
func (c *Client) Create(ctx context.Context, d record.Draft) (result.Item, error) {
	if err := d.Validate(); err != nil {
		return result.Item{}, err
	}
	d = d.Normalized()

	body, contentType, err := encodeDraft(d)
	if err != nil {
		return result.Item{}, fmt.Errorf("%s: encode: %w", opCreate, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(pathRecords, nil), body)
	if err != nil {
		return result.Item{}, fmt.Errorf("%s: build request: %w", opCreate, err)
	}
	req.Header.Set("Content-Type", contentType)

	var rec response.Record
	if err := c.do(ctx, opCreate, req, &rec); err != nil {
		return result.Item{}, err
	}
	c.logger.Info("record created",
		zap.String("id", string(rec.ID)), zap.String("patient_id", d.PatientID))
	return result.FromRecord(rec), nil
}

func encodeDraft(d record.Draft) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return nil, "", fmt.Errorf("tags: %w", err)
	}
	fields := [][2]string{
		{"patient_id", d.PatientID},
		{"body_part", d.BodyPart},
		{"scan_date", d.ScanDate},
		{"institution", d.Institution},
		{"description", d.Description},
		{"diagnosis", d.Diagnosis},
		{"tags", string(tags)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("field %s: %w", f[0], err)
		}
	}
	part, err := w.CreateFormFile("image", d.ImageName)
	if err != nil {
		return nil, "", fmt.Errorf("image: %w", err)
	}
	if _, err := io.Copy(part, d.Image); err != nil {
		return nil, "", fmt.Errorf("image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Options fetches the three dropdown lists in parallel. Any failure fails the whole call.
func (c *Client) Options(ctx context.Context) (record.Options, error) {
	var (
		bodyParts    struct{ BodyParts []string `json:"body_parts"` }
		institutions struct{ Institutions []string `json:"institutions"` }
		diagnoses    struct{ Diagnoses []string `json:"diagnoses"` }
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.getJSON(gctx, opOptions, pathBodyParts, nil, &bodyParts) })
	g.Go(func() error { return c.getJSON(gctx, opOptions, pathInstitution, nil, &institutions) })
	g.Go(func() error { return c.getJSON(gctx, opOptions, pathDiagnoses, nil, &diagnoses) })
	if err := g.Wait(); err != nil {
		return record.Options{}, err
	}
	return record.Options{
		BodyParts:    nonNil(bodyParts.BodyParts),
		Institutions: nonNil(institutions.Institutions),
		Diagnoses:    nonNil(diagnoses.Diagnoses),
	}, nil
}

// Suggestions completes text for a suggestion field. It never fails: unknown
// fields, blank text and backend errors all yield an empty list.
func (c *Client) Suggestions(ctx context.Context, field, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || !record.IsSuggestionField(field) {
		return []string{}
	}
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	q := url.Values{"field": {field}, "text": {text}}
	if err := c.getJSON(ctx, opSuggestions, pathSuggestions, q, &out); err != nil {
		c.logger.Warn("suggestions unavailable", zap.String("field", field), zap.Error(err))
		return []string{}
	}
	return nonNil(out.Suggestions)
}

// Stats fetches catalog statistics.
func (c *Client) Stats(ctx context.Context) (record.Stats, error) {
	var out record.Stats
	if err := c.getJSON(ctx, opStats, pathStats, nil, &out); err != nil {
		return record.Stats{}, err
	}
	return out, nil
}

// Ping checks that the catalog API answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.getJSON(ctx, opPing, pathRoot, nil, nil)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
