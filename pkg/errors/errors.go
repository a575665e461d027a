package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Kind identifies the class of failure independent of the message text
type Kind string

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFoundCode:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFoundCode ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
)

// Error kinds
const (
	KindMissingField       Kind = "missing_field"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindPermissionDenied   Kind = "permission_denied"
	KindEmptyMessage       Kind = "empty_message"
	KindNotFound           Kind = "not_found"
	KindInternal           Kind = "internal"
)

// Sentinels for errors.Is comparisons.
var (
	ErrMissingField       = &AppError{Code: ErrBadRequest, Kind: KindMissingField, Message: "Name, email, and password are required"}
	ErrDuplicateEmail     = &AppError{Code: ErrConflict, Kind: KindDuplicateEmail, Message: "Email already registered"}
	ErrInvalidCredentials = &AppError{Code: ErrUnauthorized, Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrPermissionDenied   = &AppError{Code: ErrForbidden, Kind: KindPermissionDenied, Message: "Permission denied"}
	ErrEmptyMessage       = &AppError{Code: ErrBadRequest, Kind: KindEmptyMessage, Message: "Message cannot be empty"}
	ErrNotFound           = &AppError{Code: ErrNotFoundCode, Kind: KindNotFound, Message: "not found"}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFoundCode,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewPermissionDenied(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Kind:    KindPermissionDenied,
		Message: message,
	}
}

func NewMissingField(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Kind:    KindMissingField,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// KindOf returns the kind of the first AppError in err's chain, or the empty kind.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Message returns the user-facing message of the first AppError in err's chain.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}
