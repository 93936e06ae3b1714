package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by kind. Handlers map them onto HTTP statuses; services
// and tests discriminate on them via the Is* helpers below.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeState         = "STATE_ERROR"
	CodeConflict      = "CONFLICT"
	CodeAuthorization = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       CodeAuthorization,
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       CodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewValidation reports structurally invalid input. Callers fix the request
// and resubmit; it is never retried as-is.
func NewValidation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// NewState reports an operation that the current entity lifecycle or time
// window does not permit.
func NewState(message string) *AppError {
	return New(CodeState, message, http.StatusUnprocessableEntity)
}

// NewConflict reports a transition attempted from a status that no longer
// supports it, typically because a concurrent mutation won the race.
func NewConflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// NewAuthorization reports an actor that is not a party to the entity being
// accessed or mutated.
func NewAuthorization(message string) *AppError {
	return New(CodeAuthorization, message, http.StatusForbidden)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// IsValidation reports whether err carries the validation error code.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsState reports whether err carries the lifecycle state error code.
func IsState(err error) bool { return hasCode(err, CodeState) }

// IsConflict reports whether err carries the conflict error code.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

// IsAuthorization reports whether err carries the authorization error code.
func IsAuthorization(err error) bool { return hasCode(err, CodeAuthorization) }

// IsNotFound reports whether err carries the not-found error code.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func hasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return false
	}
	return appErr.Code == code
}
