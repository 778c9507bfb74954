package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/xraysearch/internal/logger"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// MetricsPath serves prometheus metrics when non-empty.
	MetricsPath string
}

// NewRouter wires the middleware stack and the shell routes.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(accessLog(s.logger))
	r.Use(metrics.Middleware())

	s.Routes(r)
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, promhttp.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// jsonRecoverer turns handler panics into a 500 ErrorResponse. Aborted
// handlers keep panicking so net/http can drop the connection.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error("Handler panicked",
					zap.String("route", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one line per request with a request-scoped logger in the
// context. Server errors log at warn; websocket streams log when they end.
func accessLog(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(chiMiddleware.RequestIDHeader, reqID)
			}
			reqLogger := logger.With(zap.String("request_id", reqID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusSwitchingProtocols
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.Int("bytes", ww.BytesWritten()),
			}
			if status >= http.StatusInternalServerError {
				reqLogger.Warn("HTTP request", fields...)
				return
			}
			reqLogger.Info("HTTP request", fields...)
		})
	}
}
