// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSessionNotFound indicates no session exists for the given identifier.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSnapshotNotFound indicates no suspended thread exists for the given identifier.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidID indicates an identifier that cannot be used as a storage key.
	ErrInvalidID = errors.New("invalid identifier")
)

// SessionError wraps session-related errors with additional context.
type SessionError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	SessionID string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s operation failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new session error with context.
func NewSessionError(op, sessionID string, err error) *SessionError {
	return &SessionError{Op: op, SessionID: sessionID, Err: err}
}

// SnapshotError wraps snapshot-related errors with the thread they concern.
type SnapshotError struct {
	Op       string
	ThreadID string
	Err      error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s operation failed for thread %s: %v", e.Op, e.ThreadID, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

func NewSnapshotError(op, threadID string, err error) *SnapshotError {
	return &SnapshotError{Op: op, ThreadID: threadID, Err: err}
}

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsSnapshotNotFound checks if an error indicates a snapshot was not found.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

// IsInvalidID checks if an error indicates an unusable identifier.
func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}
