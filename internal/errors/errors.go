package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a formcraft error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrUnauthenticated  ErrorCode = "UNAUTHENTICATED"    // 401
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrElementNotFound  ErrorCode = "ELEMENT_NOT_FOUND"  // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrDuplicateID      ErrorCode = "DUPLICATE_ID"       // 409
	ErrConflict         ErrorCode = "CONFLICT"           // 409
	ErrFormPublished    ErrorCode = "FORM_PUBLISHED"     // 409
	ErrPayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"  // 413
	ErrUnknownFieldType ErrorCode = "UNKNOWN_FIELD_TYPE" // 422
	ErrValidation       ErrorCode = "VALIDATION_FAILED"  // 422
	ErrCancelled        ErrorCode = "CANCELLED"          // 499
	ErrInternal         ErrorCode = "INTERNAL"           // 500
	ErrPersistence      ErrorCode = "PERSISTENCE"        // 503
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthenticated creates a 401 error for owner-scoped calls made without an identity.
func NewUnauthenticated() *AppError {
	return &AppError{
		Code:    ErrUnauthenticated,
		Status:  401,
		Message: "an authenticated user is required",
	}
}

// NewNotFound creates a 404 error for when a form cannot be found.
func NewNotFound(identifier string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("form not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewElementNotFound creates a 404 error for a stale element reference.
func NewElementNotFound(id string) *AppError {
	return &AppError{
		Code:    ErrElementNotFound,
		Status:  404,
		Message: fmt.Sprintf("element not found: %s", id),
		Details: map[string]any{"element_id": id},
	}
}

// NewFileNotFound creates a 404 error for import paths that do not exist.
func NewFileNotFound(path string) *AppError {
	return &AppError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateID creates a 409 error when an element id is already present in a design.
func NewDuplicateID(id string) *AppError {
	return &AppError{
		Code:    ErrDuplicateID,
		Status:  409,
		Message: fmt.Sprintf("element id already exists: %s", id),
		Details: map[string]any{"element_id": id},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewVersionConflict creates a 409 error for a stale content version.
func NewVersionConflict(expected, actual int64) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("form content changed: base version %d, current version %d", expected, actual),
		Details: map[string]any{"base_version": expected, "current_version": actual},
	}
}

// NewFormPublished creates a 409 error for edits or deletes of a published form.
func NewFormPublished(id string) *AppError {
	return &AppError{
		Code:    ErrFormPublished,
		Status:  409,
		Message: fmt.Sprintf("form %s is published and can no longer be changed", id),
		Details: map[string]any{"form_id": id},
	}
}

// NewPayloadTooLarge creates a 413 error when content exceeds a configured limit.
func NewPayloadTooLarge(what string, max, actual int) *AppError {
	return &AppError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("%s exceeds maximum size: %d (max %d)", what, actual, max),
		Details: map[string]any{"max": max, "actual": actual},
	}
}

// NewUnknownFieldType creates a 422 error for a type missing from the field registry.
func NewUnknownFieldType(fieldType string) *AppError {
	return &AppError{
		Code:    ErrUnknownFieldType,
		Status:  422,
		Message: fmt.Sprintf("unknown field type: %q", fieldType),
		Details: map[string]any{"type": fieldType},
	}
}

// NewValidation creates a 422 error carrying one message per offending field.
func NewValidation(fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &AppError{
		Code:    ErrValidation,
		Status:  422,
		Message: fmt.Sprintf("validation failed: %s", strings.Join(keys, ", ")),
		Details: map[string]any{"fields": fields},
	}
}

// NewCancelled creates a 499 error when an operation's context is cancelled.
func NewCancelled(operation string) *AppError {
	return &AppError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewPersistence creates a 503 error for a failed call into the database.
// The message is the driver's, surfaced verbatim.
func NewPersistence(err error) *AppError {
	msg := "persistence error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrPersistence,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As extracts the AppError from err, wrapping unknown errors as internal.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// FieldErrors returns the per-field messages of a VALIDATION_FAILED error.
func FieldErrors(err error) map[string]string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Code != ErrValidation {
		return nil
	}
	fields, _ := appErr.Details["fields"].(map[string]string)
	return fields
}
