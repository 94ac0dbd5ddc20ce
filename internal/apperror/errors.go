// Package apperror provides domain-specific error types for Vivido.
// These errors carry an HTTP status code, a machine-readable type tag, and a
// user-safe message. The Echo error handler maps them to responses
// automatically.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"fmt"
	"net/http"
)

// Type tags for the authentication and registration outcomes. Handlers and
// tests match on these rather than on message text.
const (
	TypeMissingCredentials  = "missing_credentials"
	TypeAccountNotFound     = "account_not_found"
	TypeAccountInactive     = "account_inactive"
	TypeAccountLocked       = "account_locked"
	TypeAccountLockedNow    = "account_locked_now"
	TypeWrongPassword       = "wrong_password"
	TypeVerificationError   = "verification_error"
	TypeStoreError          = "store_error"
	TypeDuplicateIdentifier = "duplicate_identifier"
	TypeValidationFailed    = "validation_failed"
	TypeNotFound            = "not_found"
	TypeBadRequest          = "bad_request"
	TypeInternal            = "internal_error"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "account_locked").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for the authentication taxonomy ---

// NewMissingCredentials signals an empty identifier or password. The engine
// fails fast on these before touching the store.
func NewMissingCredentials(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeMissingCredentials,
		Message: message,
	}
}

// NewAccountNotFound signals that no account matched the identifier. Unlike
// the other failures this one is deliberately distinguishable, so the UI can
// offer registration.
func NewAccountNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeAccountNotFound,
		Message: message,
	}
}

// NewAccountInactive signals a deactivated account.
func NewAccountInactive(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    TypeAccountInactive,
		Message: message,
	}
}

// NewAccountLocked signals a lockout in effect, whether pre-existing or
// triggered by the attempt that received this error.
func NewAccountLocked(message string) *AppError {
	return &AppError{
		Code:    http.StatusLocked,
		Type:    TypeAccountLocked,
		Message: message,
	}
}

// NewAccountLockedNow signals the lockout triggered by this very attempt,
// so the UI can tell "you just got locked out" apart from an ongoing lock.
func NewAccountLockedNow(message string) *AppError {
	return &AppError{
		Code:    http.StatusLocked,
		Type:    TypeAccountLockedNow,
		Message: message,
	}
}

// NewWrongPassword signals a failed password verification.
func NewWrongPassword(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeWrongPassword,
		Message: message,
	}
}

// NewVerificationError signals a digest that could not be verified at all
// (malformed at rest). Treated as an authentication failure, never a crash.
func NewVerificationError(err error) *AppError {
	return &AppError{
		Code:     http.StatusUnauthorized,
		Type:     TypeVerificationError,
		Message:  "Password verification error",
		Internal: err,
	}
}

// NewStoreError wraps an unexpected storage failure. The real error is kept
// for logging; the client sees a generic message.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeStoreError,
		Message:  "A database error occurred. Please try again.",
		Internal: err,
	}
}

// NewDuplicateIdentifier signals a username/email uniqueness violation,
// whether caught by pre-check or by the insert-time constraint.
func NewDuplicateIdentifier(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    TypeDuplicateIdentifier,
		Message: message,
	}
}

// NewValidationFailed creates a 422 error for input validation failures.
func NewValidationFailed(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeValidationFailed,
		Message: message,
	}
}

// --- Generic constructors ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details like table names, query structure, or stack traces.
func SafeMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
