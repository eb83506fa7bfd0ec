package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
)

// Recovery turns a handler panic into a logged INTERNAL_ERROR. The
// http.ErrAbortHandler sentinel is re-raised so net/http can abort the
// connection quietly.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				// Recovery wraps RequestLogging, so the id is only on the response.
				log.Error("Handler panicked",
					"request_id", w.Header().Get(RequestIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				reject(w, apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
