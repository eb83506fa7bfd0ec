package middleware

import (
	"context"
	"net/http"
	apperrors "tourbook/pkg/errors"
	httputil "tourbook/pkg/http"
)

func requestIDFrom(r *http.Request) string {
	return RequestIDFrom(r.Context())
}

// RequestIDFrom returns the id RequestLogging assigned, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		return rid
	}
	return ""
}

// reject writes the standard error envelope. Write failures are ignored since
// the client is already gone.
func reject(w http.ResponseWriter, appErr *apperrors.AppError) {
	_ = httputil.WriteError(w, appErr)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
