// Package chi is the HTTP shell around search sessions and record operations.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/xraysearch/internal/logger"
	healthuc "github.com/kailas-cloud/xraysearch/internal/usecase/health"
	recorduc "github.com/kailas-cloud/xraysearch/internal/usecase/record"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeInvalidLocation  = "invalid_location"
	CodeNotFound         = "not_found"
	CodeSessionNotFound  = "session_not_found"
	CodeBackendError     = "backend_error"
	CodeBackendTimeout   = "backend_timeout"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SessionResponse is a snapshot of one session.
type SessionResponse struct {
	ID            string          `json:"id"`
	Location      string          `json:"location"`
	Filter        filter.State    `json:"filter"`
	ActiveFilters []filter.Active `json:"active_filters"`
	Outcome       result.Outcome  `json:"outcome"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the shell API.
type Server struct {
	sessions      *Registry
	records       *recorduc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP shell server.
func NewServer(
	sessions *Registry,
	records *recorduc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: sessions,
		records:  records,
		health:   health,
		logger:   logger,
	}
	// Order matters: a catalog 404 is also a transport failure.
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidLocation, http.StatusBadRequest, CodeInvalidLocation),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeBackendTimeout),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, CodeBackendError),
		sentinelHandler(domain.ErrDecode, http.StatusBadGateway, CodeBackendError),
		sentinelHandler(domain.ErrUnroutable, http.StatusBadGateway, CodeBackendError),
	}
	return s
}

// Routes registers the shell endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/{id}", s.GetSession)
		r.Patch("/{id}", s.PatchSession)
		r.Post("/{id}/refresh", s.RefreshSession)
		r.Delete("/{id}", s.DeleteSession)
		r.Get("/{id}/stream", s.StreamSession)
	})
	r.Get("/records/{id}", s.GetRecord)
	r.Post("/records", s.CreateRecord)
	r.Get("/options", s.GetOptions)
	r.Get("/suggestions", s.GetSuggestions)
	r.Get("/stats", s.GetStats)
	r.Get("/health", s.HealthCheck)
}

// CreateSession handles POST /sessions?<location>.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context(), r.URL.RawQuery)
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, snapshot(sess))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess))
}

// PatchSession handles PATCH /sessions/{id}. The body maps filter fields to
// new values; null or "" clears a field, and "page" takes a number.
func (s *Server) PatchSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p, err := partialFromPatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx := logpkg.With(r.Context(), zap.String("session_id", sess.ID))
	logpkg.FromContext(ctx).Debug("Session filter change", zap.Any("fields", p.Fields()))
	sess.Orch.ApplyFilterChange(ctx, p)
	writeJSON(w, http.StatusOK, snapshot(sess))
}

// RefreshSession handles POST /sessions/{id}/refresh.
func (s *Server) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Orch.Refresh(r.Context())
	writeJSON(w, http.StatusOK, snapshot(sess))
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.records.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateRecord handles POST /records (multipart/form-data).
func (s *Server) CreateRecord(w http.ResponseWriter, r *http.Request) {
	d, cleanup, err := draftFromMultipart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	defer cleanup()

	item, err := s.records.Submit(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/records/"+item.ID)
	writeJSON(w, http.StatusCreated, item)
}

// GetOptions handles GET /options.
func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.records.Options(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GetSuggestions handles GET /suggestions?field=&text=.
func (s *Server) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	var field, text string
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "field", q, &field); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid parameter field: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "text", q, &text); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid parameter text: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"suggestions": s.records.Suggestions(r.Context(), field, text),
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.records.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid parameter id: "+err.Error())
		return "", false
	}
	return id, true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return sess, true
}

func snapshot(sess *Session) SessionResponse {
	st := sess.Orch.CurrentFilterState()
	active := st.ActiveFilters()
	if active == nil {
		active = []filter.Active{}
	}
	return SessionResponse{
		ID:            sess.ID,
		Location:      sess.Orch.Location(),
		Filter:        st,
		ActiveFilters: active,
		Outcome:       sess.Orch.CurrentOutcome(),
	}
}

func partialFromPatch(body map[string]json.RawMessage) (filter.Partial, error) {
	var p filter.Partial
	for key, raw := range body {
		if key == "page" {
			var page *int
			if err := json.Unmarshal(raw, &page); err != nil {
				return filter.Partial{}, fmt.Errorf("page must be a number or null")
			}
			if page == nil {
				p = p.WithPage(0)
			} else {
				p = p.WithPage(*page)
			}
			continue
		}
		f, ok := filter.ParseField(key)
		if !ok {
			return filter.Partial{}, fmt.Errorf("unknown filter field %q", key)
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return filter.Partial{}, fmt.Errorf("%s must be a string or null", key)
		}
		if v == nil {
			p = p.Clear(f)
		} else {
			p = p.Set(f, *v)
		}
	}
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidRecord,
		domain.ErrInvalidLocation,
		domain.ErrTimeout,
		domain.ErrDecode,
		domain.ErrTransport,
		domain.ErrUnroutable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the offending field of a rejected draft.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: verr.Field + " " + verr.Reason,
		Field:   verr.Field,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
