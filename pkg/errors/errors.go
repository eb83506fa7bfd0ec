package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"net/http"
	"time"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidState     = "INVALID_STATE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

// statusByCode is the HTTP status each code renders with. Codes missing here
// render as 500.
var statusByCode = map[string]int{
	CodeNotFound:         http.StatusNotFound,
	CodeValidation:       http.StatusUnprocessableEntity,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeForbidden:        http.StatusForbidden,
	CodeConflict:         http.StatusConflict,
	CodeInternal:         http.StatusInternalServerError,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeUnavailable:      http.StatusServiceUnavailable,
	CodeInvalidInput:     http.StatusBadRequest,
	CodeInvalidState:     http.StatusConflict,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeUnsupportedMedia: http.StatusUnsupportedMediaType,
	CodePayloadTooLarge:  http.StatusRequestEntityTooLarge,
}

// AppError is an error that knows how it should be shown to an API caller.
// Err carries the internal cause and is never rendered.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return StatusFor(e.Code)
	}
	return e.HTTPStatus
}

// Response is the body WriteError sends for e.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

// WithDetails merges details into e, overwriting keys already present.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// StatusFor returns the HTTP status registered for code.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New builds an error with an explicit status, for cases the named
// constructors do not cover.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func newCoded(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: StatusFor(code)}
}

func NotFoundWithID(resource, id string) *AppError {
	return newCoded(CodeNotFound, resource+" not found").
		WithDetails(map[string]any{"resource": resource, "id": id})
}

func Validation(message string, details map[string]any) *AppError {
	return newCoded(CodeValidation, message).WithDetails(details)
}

func InvalidInput(message string) *AppError { return newCoded(CodeInvalidInput, message) }

func Unauthorized(message string) *AppError { return newCoded(CodeUnauthorized, message) }

func Forbidden(message string) *AppError { return newCoded(CodeForbidden, message) }

func Conflict(message string) *AppError { return newCoded(CodeConflict, message) }

// InvalidState reports an illegal lifecycle transition, such as cancelling a
// completed booking.
func InvalidState(message string) *AppError { return newCoded(CodeInvalidState, message) }

func Timeout(message string) *AppError { return newCoded(CodeTimeout, message) }

func Internal(message string, err error) *AppError {
	appErr := newCoded(CodeInternal, message)
	appErr.Err = err
	return appErr
}

func Unavailable(service string) *AppError {
	return newCoded(CodeUnavailable, service+" is temporarily unavailable")
}

// RateLimited tells the caller how long to wait before retrying.
func RateLimited(retryAfter time.Duration) *AppError {
	return newCoded(CodeRateLimited, "Rate limit exceeded").
		WithDetails(map[string]any{"retry_after_seconds": RetrySeconds(retryAfter)})
}

func UnsupportedMediaType(want string) *AppError {
	return newCoded(CodeUnsupportedMedia, "Content-Type must be "+want)
}

func PayloadTooLarge(limit int64) *AppError {
	return newCoded(CodePayloadTooLarge, "Request body too large").
		WithDetails(map[string]any{"limit_bytes": limit})
}

// RetrySeconds rounds d up to whole seconds, the unit of a Retry-After header.
func RetrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError finds an AppError anywhere in the chain, so errors wrapped by a
// transaction keep their code.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
