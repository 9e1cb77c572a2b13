package models

import (
	"errors"
	"fmt"
)

// Error codes shared by every operation in the data layer.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConstraint       = "CONSTRAINT_VIOLATION"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeForbidden        = "FORBIDDEN"
)

// Sentinels for errors.Is. Any AppError with the same code matches.
var (
	ErrValidation       = &AppError{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound         = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrConstraint       = &AppError{Code: CodeConstraint, Message: "constraint violation"}
	ErrStoreUnavailable = &AppError{Code: CodeStoreUnavailable, Message: "store unavailable"}
	ErrForbidden        = &AppError{Code: CodeForbidden, Message: "forbidden"}
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// Is matches on Code so callers can compare against the package sentinels.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the AppError code carried by err, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewConstraintError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeConstraint,
		Message: message,
		Err:     err,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewStoreUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: "Store unavailable",
		Err:     err,
	}
}
