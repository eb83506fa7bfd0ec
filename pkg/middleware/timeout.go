package middleware

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"net/http"
	"sync"
	"time"
	apperrors "tourbook/pkg/errors"
)

// bufferedWriter holds the handler's response until it finishes, so a
// deadline can still replace it with a clean 504.
type bufferedWriter struct {
	mu       sync.Mutex
	header   http.Header
	body     bytes.Buffer
	status   int
	timedOut bool
}

func (bw *bufferedWriter) Header() http.Header { return bw.header }

func (bw *bufferedWriter) WriteHeader(code int) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.status == 0 && !bw.timedOut {
		bw.status = code
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	return bw.body.Write(b)
}

func (bw *bufferedWriter) flushTo(w http.ResponseWriter) {
	maps.Copy(w.Header(), bw.header)
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	w.WriteHeader(bw.status)
	_, _ = w.Write(bw.body.Bytes())
}

// RequestTimeout bounds a request with a context deadline. Handlers that
// overrun get a TIMEOUT envelope and whatever they write afterwards is
// discarded.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			bw := &bufferedWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(bw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
			case <-ctx.Done():
			}

			bw.mu.Lock()
			defer bw.mu.Unlock()
			// A handler that only finished because its context expired still overran.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				bw.timedOut = true
				reject(w, apperrors.Timeout("Request timeout"))
				return
			}
			if ctx.Err() != nil {
				// Client went away; nobody is listening.
				bw.timedOut = true
				return
			}
			bw.flushTo(w)
		})
	}
}
