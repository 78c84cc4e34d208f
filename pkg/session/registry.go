// Package session tracks which conversation thread each client session is attached to.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
)

// DefaultRetentionDays is how long an untouched session is kept.
const DefaultRetentionDays = 7

type Registry struct {
	sessions persistence.SessionRepository
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(logger *slog.Logger, sessions persistence.SessionRepository, opts ...Option) *Registry {
	r := &Registry{
		sessions: sessions,
		now:      time.Now,
		logger:   logger.With("module", "session_registry"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CreateSession attaches a fresh thread to sessionID, generating the id when it is empty.
// An existing session with the same id is replaced.
func (r *Registry) CreateSession(ctx context.Context, agent, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := persistence.ValidateID(sessionID); err != nil {
		return nil, persistence.NewSessionError("create", sessionID, err)
	}

	now := r.now().UTC()
	session := &models.Session{
		ID:          sessionID,
		ThreadID:    uuid.NewString(),
		AgentType:   agent,
		Status:      models.SessionActive,
		CreatedAt:   now,
		LastUpdated: now,
	}

	if err := r.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Session created", "session_id", session.ID, "thread_id", session.ThreadID, "agent", agent)

	return session, nil
}

func (r *Registry) Lookup(ctx context.Context, sessionID string) (*models.Session, error) {
	return r.sessions.GetByID(ctx, sessionID)
}

// UpdateStatus records the session's new status. The interrupt info is kept only while interrupted.
func (r *Registry) UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, info *models.InterruptInfo) error {
	if !status.IsValid() {
		return persistence.NewSessionError("update", sessionID, fmt.Errorf("invalid status %q", status))
	}

	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = status
	session.LastUpdated = r.now().UTC()
	session.InterruptInfo = nil

	if status == models.SessionInterrupted {
		session.InterruptInfo = info
	}

	return r.sessions.Save(ctx, session)
}

func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	return r.sessions.Delete(ctx, sessionID)
}

func (r *Registry) List(ctx context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	return r.sessions.List(ctx, filter)
}

// Cleanup removes sessions not updated in the last olderThanDays days.
func (r *Registry) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		olderThanDays = DefaultRetentionDays
	}

	cutoff := r.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	count, err := r.sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return count, fmt.Errorf("failed to clean up sessions: %w", err)
	}

	if count > 0 {
		r.logger.InfoContext(ctx, "Expired sessions removed", "count", count, "older_than_days", olderThanDays)
	}

	return count, nil
}
