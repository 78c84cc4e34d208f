// Package persistence provides the storage abstraction for sessions and suspended workflow threads.
package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/models"
)

type Persistence interface {
	Sessions() SessionRepository
	Snapshots() SnapshotRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// SessionFilter narrows List results. Empty fields match everything.
type SessionFilter struct {
	AgentType string
	Status    models.SessionStatus
}

// Matches reports whether session satisfies the filter.
func (f SessionFilter) Matches(session *models.Session) bool {
	if f.AgentType != "" && session.AgentType != f.AgentType {
		return false
	}

	if f.Status != "" && session.Status != f.Status {
		return false
	}

	return true
}

// SessionRepository stores session records keyed by session id.
type SessionRepository interface {
	// Save inserts or replaces the session.
	Save(ctx context.Context, session *models.Session) error

	// GetByID returns ErrSessionNotFound when no record exists.
	GetByID(ctx context.Context, id string) (*models.Session, error)

	// List returns matching sessions, most recently updated first.
	List(ctx context.Context, filter SessionFilter) ([]*models.Session, error)

	// Delete returns ErrSessionNotFound when no record exists.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes sessions whose last update precedes cutoff and reports how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// SnapshotRepository persists the state of suspended workflow threads.
type SnapshotRepository interface {
	// SaveSnapshot replaces any previous snapshot for the same thread.
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// LoadSnapshot returns ErrSnapshotNotFound when the thread is not suspended.
	LoadSnapshot(ctx context.Context, threadID string) (*models.Snapshot, error)

	// DeleteSnapshot is a no-op for unknown threads.
	DeleteSnapshot(ctx context.Context, threadID string) error

	// CleanupExpiredSnapshots removes snapshots not updated within maxAge.
	CleanupExpiredSnapshots(ctx context.Context, maxAge time.Duration) (int, error)
}

// ValidateID rejects identifiers that are empty or could escape a storage namespace.
func ValidateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return ErrInvalidID
	}

	return nil
}
