package errors

import (
	"net/http"

	"referral/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails returns a copy carrying detailed error information.
// The copy still matches the original through errors.Is.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches any BaseError with the same business code.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// Predefined error types
var (
	ErrInvalidRequest = NewBaseError(
		http.StatusBadRequest,
		"INVALID_REQUEST",
		"Request is malformed or missing required fields",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Credentials are invalid",
		"",
	)

	// ErrInvalidOrExpiredSession covers every refresh or access token rejection.
	// Callers never learn which check failed.
	ErrInvalidOrExpiredSession = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_OR_EXPIRED_SESSION",
		"Session is invalid or has expired",
		"",
	)

	ErrPrincipalArchived = NewBaseError(
		http.StatusForbidden,
		"PRINCIPAL_ARCHIVED",
		"This account has been archived",
		"",
	)

	ErrPrincipalNotFound = NewBaseError(
		http.StatusNotFound,
		"PRINCIPAL_NOT_FOUND",
		"Account not found",
		"",
	)

	ErrRateLimited = NewBaseError(
		http.StatusTooManyRequests,
		"RATE_LIMITED",
		"Too many requests, please retry later",
		"",
	)

	ErrInternal = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// PrincipalArchivedError reports an archived principal together with its id so
// entry points can revoke the principal's remaining sessions.
type PrincipalArchivedError struct {
	PrincipalID string
}

func (e *PrincipalArchivedError) Error() string {
	return ErrPrincipalArchived.Error()
}

func (e *PrincipalArchivedError) Unwrap() error {
	return ErrPrincipalArchived
}

func (e *PrincipalArchivedError) HTTPCode() int     { return ErrPrincipalArchived.HTTPCode() }
func (e *PrincipalArchivedError) ErrorCode() string { return ErrPrincipalArchived.ErrorCode() }
func (e *PrincipalArchivedError) Message() string   { return ErrPrincipalArchived.Message() }
func (e *PrincipalArchivedError) Details() string   { return "" }

// NewPrincipalArchived builds the typed archived error for principalID.
func NewPrincipalArchived(principalID string) error {
	return &PrincipalArchivedError{PrincipalID: principalID}
}

// AsAppError extracts the AppError carried by err, if any.
func AsAppError(err error) (AppError, bool) {
	return errors.AsType[AppError](err)
}
