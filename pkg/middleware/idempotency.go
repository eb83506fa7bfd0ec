package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	apperrors "tourbook/pkg/errors"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replay"
)

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rc *responseCapture) WriteHeader(code int) {
	if rc.status == 0 {
		rc.status = code
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency makes writes carrying an Idempotency-Key safe to retry. The
// first 2xx response is replayed for later requests with the same key and
// body. A duplicate that arrives while the first is still running gets 409,
// and reusing a key with a different body gets 422. Keys are scoped to the
// caller, method and path, so two customers never see each other's
// responses.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					reject(w, apperrors.PayloadTooLarge(tooLarge.Limit))
					return
				}
				reject(w, apperrors.InvalidInput("Failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scoped := scopedIdempotencyKey(r, key)
			cached, err := store.Begin(r.Context(), scoped, fingerprint(body))
			switch {
			case errors.Is(err, ErrIdempotencyInFlight):
				reject(w, apperrors.Conflict("A request with this Idempotency-Key is still in progress"))
				return
			case errors.Is(err, ErrIdempotencyMismatch):
				reject(w, apperrors.Validation("Idempotency-Key was already used with a different request body", nil))
				return
			case cached != nil:
				replayCachedResponse(w, cached)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					store.Abandon(context.WithoutCancel(r.Context()), scoped)
				}
			}()

			next.ServeHTTP(capture, r)

			if capture.status >= 200 && capture.status < 300 {
				store.Complete(context.WithoutCancel(r.Context()), scoped, &CachedResponse{
					StatusCode:  capture.status,
					Headers:     w.Header().Clone(),
					Body:        capture.body.Bytes(),
					Fingerprint: fingerprint(body),
				})
				completed = true
			}
		})
	}
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func scopedIdempotencyKey(r *http.Request, key string) string {
	return ActorOrAddress(r) + "|" + r.Method + "|" + r.URL.Path + "|" + key
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == http.CanonicalHeaderKey(RequestIDHeader) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
