package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFoundWithID("Booking", "b-1"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("malformed json"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("token required"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("not your booking"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("dates already reserved"), CodeConflict, http.StatusConflict},
		{"invalid state", InvalidState("completed bookings cannot be cancelled"), CodeInvalidState, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("request timed out"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Tour catalog"), CodeUnavailable, http.StatusServiceUnavailable},
		{"rate limited", RateLimited(time.Minute), CodeRateLimited, http.StatusTooManyRequests},
		{"media type", UnsupportedMediaType("application/json"), CodeUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"too large", PayloadTooLarge(1 << 20), CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"explicit status", New("TEAPOT", "short and stout", http.StatusTeapot), "TEAPOT", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if got := tt.err.StatusCode(); got != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestStatusCode_FallsBackToCodeTable(t *testing.T) {
	err := &AppError{Code: CodeNotFound, Message: "missing"}
	if got := err.StatusCode(); got != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, want 404", got)
	}

	unknown := &AppError{Code: "SOMETHING_ELSE"}
	if got := unknown.StatusCode(); got != http.StatusInternalServerError {
		t.Errorf("unknown code StatusCode() = %d, want 500", got)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without cause",
			appErr:   &AppError{Code: CodeNotFound, Message: "Booking not found"},
			expected: "NOT_FOUND: Booking not found",
		},
		{
			name:     "with cause",
			appErr:   Internal("Failed to save booking", errors.New("mongo write failed")),
			expected: "INTERNAL_ERROR: Failed to save booking (caused by: mongo write failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("mongo write failed")
	err := Internal("Failed to save booking", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if err.Response().Details != nil {
		t.Error("the cause must not be rendered")
	}
}

func TestWithDetails_Merges(t *testing.T) {
	err := NotFoundWithID("Booking", "b-1").WithDetails(map[string]any{"id": "b-2", "hint": "check the id"})

	if err.Details["resource"] != "Booking" {
		t.Errorf("resource detail lost: %v", err.Details)
	}
	if err.Details["id"] != "b-2" {
		t.Errorf("id = %v, want the later value b-2", err.Details["id"])
	}
	if err.Details["hint"] != "check the id" {
		t.Errorf("hint = %v", err.Details["hint"])
	}

	plain := Conflict("taken").WithDetails(nil)
	if plain.Details != nil {
		t.Errorf("empty details should leave Details nil, got %v", plain.Details)
	}
}

func TestResponse(t *testing.T) {
	resp := Unavailable("Tour catalog").Response()
	if resp.Code != CodeUnavailable || resp.Message != "Tour catalog is temporarily unavailable" {
		t.Errorf("unexpected response %+v", resp)
	}

	limited := RateLimited(1500 * time.Millisecond).Response()
	if limited.Details["retry_after_seconds"] != 2 {
		t.Errorf("retry_after_seconds = %v, want 2", limited.Details["retry_after_seconds"])
	}
}

func TestRetrySeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1001 * time.Millisecond, 2},
		{time.Minute, 60},
	}
	for _, tt := range tests {
		if got := RetrySeconds(tt.in); got != tt.want {
			t.Errorf("RetrySeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("dates already reserved").WithDetails(map[string]any{
		"unavailable_dates": []string{"2024-12-21"},
	})
	wrapped := fmt.Errorf("transaction failed: %w", conflict)
	plain := errors.New("regular error")

	if !IsAppError(wrapped) {
		t.Fatal("IsAppError() should find an AppError through wrapping")
	}
	if IsAppError(plain) {
		t.Error("IsAppError() should be false for a plain error")
	}
	if got := AsAppError(wrapped); got != conflict {
		t.Errorf("AsAppError() = %v, want the wrapped conflict", got)
	}

	internal := AsAppError(plain)
	if internal.Code != CodeInternal || internal.Err != plain {
		t.Errorf("plain errors should become internal errors wrapping the cause, got %+v", internal)
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NotFoundWithID("Booking", "b-1"))

	if !HasCode(wrapped, CodeNotFound) {
		t.Error("HasCode() should match the wrapped code")
	}
	if HasCode(wrapped, CodeConflict) {
		t.Error("HasCode() should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Error("HasCode() should be false for a plain error")
	}
}
