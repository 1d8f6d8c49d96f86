// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation       ErrorType = iota // Input validation or expired meetup errors (400 Bad Request)
	ErrorTypeNotFound                          // Resource not found errors (404 Not Found)
	ErrorTypeGone                              // Resource exists but was soft deleted (410 Gone)
	ErrorTypeForbidden                         // Caller is not allowed to act on the resource (403 Forbidden)
	ErrorTypeConflict                          // Resource conflict errors (409 Conflict)
	ErrorTypeCapacityExceeded                  // Meetup ceiling would be exceeded (400 Bad Request, distinct code)
	ErrorTypeInternal                          // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                       // Service unavailable errors (503 Service Unavailable)
)

// String returns the lower snake case name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeGone:
		return "gone"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeCapacityExceeded:
		return "capacity_exceeded"
	case ErrorTypeInternal:
		return "internal"
	case ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Common errors
var (
	ErrServiceUnavailable = NewUnavailableError("service unavailable")
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewGoneError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeGone, Message: message, Err: errors.Join(err...)}
}

func NewForbiddenError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeForbidden, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewCapacityExceededError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeCapacityExceeded, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}
