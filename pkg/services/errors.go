// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrEmptyMessage     = errors.New("message cannot be empty")
	ErrInvalidReplyKind = errors.New("invalid reply kind")
	ErrInvalidStatus    = errors.New("invalid session status")

	// Lookup Errors (404 Not Found).
	ErrSessionNotFound = errors.New("세션을 찾을 수 없습니다.")

	// Business Logic Conflicts (409 Conflict).
	ErrNoPendingSuspension = errors.New("session is not waiting for input")
	ErrUnsupportedAgent    = errors.New("agent does not support interrupts")
	ErrAgentNotImplemented = errors.New("agent is not implemented")

	// ErrInternal marks faults converted into failure results at the service boundary.
	ErrInternal = errors.New("internal error")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrInvalidReplyKind) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNoPendingSuspension) ||
		errors.Is(err, ErrUnsupportedAgent) ||
		errors.Is(err, ErrAgentNotImplemented)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
