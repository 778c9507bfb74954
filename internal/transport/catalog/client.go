// Package catalog is an HTTP client for the imaging catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
)

// Defaults applied by New.
const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 10 * time.Second
)

// Endpoint names, used as metric labels and error prefixes.
const (
	opFullText    = "fulltext"
	opStructured  = "structured"
	opDetail      = "detail"
	opCreate      = "create"
	opOptions     = "options"
	opSuggestions = "suggestions"
	opStats       = "stats"
	opPing        = "ping"
)

const maxErrorBody = 4 << 10

// Config holds the client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to both catalog backends and the record endpoints.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

// New creates a catalog client.
func New(cfg *Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{base: base, http: hc, logger: logger}, nil
}

// BaseURL returns the catalog root.
func (c *Client) BaseURL() string { return c.base.String() }

// StatusError is a non-2xx catalog answer. It matches domain.ErrTransport,
// and also domain.ErrNotFound for 404 and domain.ErrInvalidRecord for 400.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: catalog returned %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: catalog returned %d: %s", e.Op, e.Code, e.Detail)
}

// Is reports whether target is a sentinel this status maps to.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrTransport:
		return true
	case domain.ErrNotFound:
		return e.Code == http.StatusNotFound
	case domain.ErrInvalidRecord:
		return e.Code == http.StatusBadRequest
	}
	return false
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	return c.do(ctx, op, req, out)
}

// do sends req and decodes a 2xx JSON body into out (skipped when out is nil).
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	start := time.Now()

	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "error").Inc()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
		}
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BackendRequestsTotal.WithLabelValues(op, statusClass(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{Op: op, Code: resp.StatusCode, Detail: extractDetail(body)}
		c.logger.Debug("catalog request failed",
			zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("detail", serr.Detail))
		return serr
	}

	if out == nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "success").Inc()
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "decode_error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, ctxErr)
		}
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDecode, err)
	}
	metrics.BackendRequestsTotal.WithLabelValues(op, "success").Inc()
	return nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	}
	return "other"
}

// extractDetail pulls a readable message out of an error body. It understands
// {"detail": "..."}, {"error": "..."} and per-field validation maps.
func extractDetail(body []byte) string {
	var parsed map[string]json.RawMessage
	if json.Unmarshal(body, &parsed) != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"detail", "error"} {
		var s string
		if raw, ok := parsed[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	var parts []string
	for field, raw := range parsed {
		var msgs []string
		if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
			parts = append(parts, field+": "+strings.Join(msgs, "; "))
		}
	}
	if len(parts) > 0 {
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(string(body))
}
