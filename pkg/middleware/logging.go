package middleware

import (
	"net/http"
	"time"
	"tourbook/pkg/logger"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"

	maxRequestIDLen = 64
)

// statusRecorder remembers the first status written and how many body bytes
// followed it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status != 0 {
		return
	}
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) statusCode() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// RequestLogging tags the request with an id, reusing a sane X-Request-ID
// from the caller, and stores a child logger carrying it in the context.
// Completion is logged at warn for 5xx.
func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLen {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := log.With("request_id", requestID)
			ctx := logger.IntoContext(WithRequestID(r.Context(), requestID), reqLog)
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w}
			reqLog.Debug("HTTP request started", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode(),
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if rec.statusCode() >= http.StatusInternalServerError {
				reqLog.Warn("HTTP request failed", attrs...)
				return
			}
			reqLog.Info("HTTP request completed", attrs...)
		})
	}
}
