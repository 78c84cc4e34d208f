// Package memory provides an in-process persistence backend, used by default and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

type Persistence struct {
	sessions  *SessionRepository
	snapshots *SnapshotRepository
}

func NewPersistence() *Persistence {
	return &Persistence{
		sessions:  &SessionRepository{records: map[string]models.Session{}},
		snapshots: &SnapshotRepository{records: map[string]models.Snapshot{}},
	}
}

func (p *Persistence) Sessions() persistence.SessionRepository   { return p.sessions }
func (p *Persistence) Snapshots() persistence.SnapshotRepository { return p.snapshots }
func (p *Persistence) HealthCheck(context.Context) error         { return nil }
func (p *Persistence) Close(context.Context) error               { return nil }

// SessionRepository stores copies so callers cannot mutate stored records.
type SessionRepository struct {
	mu      sync.RWMutex
	records map[string]models.Session
}

func copySession(s models.Session) *models.Session {
	if s.InterruptInfo != nil {
		info := *s.InterruptInfo
		s.InterruptInfo = &info
	}

	return &s
}

func (r *SessionRepository) Save(_ context.Context, session *models.Session) error {
	if err := persistence.ValidateID(session.ID); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[session.ID] = *copySession(*session)

	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.records[id]
	if !ok {
		return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
	}

	return copySession(session), nil
}

func (r *SessionRepository) List(_ context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(r.records))

	for _, session := range r.records {
		if filter.Matches(&session) {
			sessions = append(sessions, copySession(session))
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})

	return sessions, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return persistence.NewSessionError("Delete", id, persistence.ErrSessionNotFound)
	}

	delete(r.records, id)

	return nil
}

func (r *SessionRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	for id, session := range r.records {
		if !session.LastUpdated.IsZero() && session.LastUpdated.Before(cutoff) {
			delete(r.records, id)
			removed++
		}
	}

	return removed, nil
}

type SnapshotRepository struct {
	mu      sync.RWMutex
	records map[string]models.Snapshot
}

func (r *SnapshotRepository) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	if err := persistence.ValidateID(snapshot.ThreadID); err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	stored := *snapshot
	stored.State = snapshot.State.Clone()
	r.records[snapshot.ThreadID] = stored

	return nil
}

func (r *SnapshotRepository) LoadSnapshot(_ context.Context, threadID string) (*models.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.records[threadID]
	if !ok {
		return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, persistence.ErrSnapshotNotFound)
	}

	snapshot.State = snapshot.State.Clone()

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteSnapshot(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, threadID)

	return nil
}

func (r *SnapshotRepository) CleanupExpiredSnapshots(_ context.Context, maxAge time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, snapshot := range r.records {
		if snapshot.UpdatedAt.Before(cutoff) {
			delete(r.records, id)
			removed++
		}
	}

	return removed, nil
}
