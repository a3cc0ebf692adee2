// Package errors defines the application error type returned across layers.
//
// Every failure that reaches a client is an *AppError carrying a stable code,
// a human readable message and the HTTP status it maps to. Err holds one of the
// taxonomy sentinels below so callers can classify errors with errors.Is.
//
// Import Path: nodetree.io/nodetree/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Taxonomy sentinels.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

// AppError is a structured application error with HTTP status and error code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "NODE_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// HTTPStatus is the corresponding HTTP status code.
	HTTPStatus int `json:"-"`

	// Params carries structured context such as the offending id or name.
	Params map[string]interface{} `json:"params,omitempty"`

	// FieldErrors carries field-level validation details.
	FieldErrors []FieldError `json:"field_errors,omitempty"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// FieldError describes a field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithParams attaches structured parameters to the error.
func (e *AppError) WithParams(params map[string]interface{}) *AppError {
	if e == nil || len(params) == 0 {
		return e
	}
	e.Params = params
	return e
}

// WithFieldErrors attaches field-level errors to the AppError.
func (e *AppError) WithFieldErrors(fieldErrors []FieldError) *AppError {
	if e == nil || len(fieldErrors) == 0 {
		return e
	}
	e.FieldErrors = fieldErrors
	return e
}

// Kind constructors. Each one wraps the matching taxonomy sentinel.

// Validation creates a 400 error classified as ErrValidation.
func Validation(code, message string) *AppError {
	return Wrap(ErrValidation, code, message, http.StatusBadRequest)
}

// Conflict creates an error classified as ErrConflict.
// Name collisions are reported to clients as 400.
func Conflict(code, message string) *AppError {
	return Wrap(ErrConflict, code, message, http.StatusBadRequest)
}

// NotFound creates a 404 error classified as ErrNotFound.
func NotFound(code, message string) *AppError {
	return Wrap(ErrNotFound, code, message, http.StatusNotFound)
}

// Forbidden creates an error classified as ErrForbidden.
// Structural rule violations are reported to clients as 400.
func Forbidden(code, message string) *AppError {
	return Wrap(ErrForbidden, code, message, http.StatusBadRequest)
}

// Internal wraps a storage or programming failure as a 500.
func Internal(err error, message string) *AppError {
	if err == nil {
		err = ErrInternal
	} else {
		err = fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return Wrap(err, CodeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
