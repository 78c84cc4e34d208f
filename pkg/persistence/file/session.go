package file

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// SessionRepository stores one <session_id>.json file per session.
type SessionRepository struct {
	dir string
}

func NewSessionRepository(dir string) *SessionRepository {
	return &SessionRepository{dir: dir}
}

func (r *SessionRepository) Save(_ context.Context, session *models.Session) error {
	if err := persistence.ValidateID(session.ID); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return writeJSON(r.dir, session.ID, session)
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	var session models.Session
	if err := readJSON(filepath.Join(r.dir, id+".json"), &session); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	return &session, nil
}

func (r *SessionRepository) List(_ context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	sessions, err := r.all()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Session, 0, len(sessions))

	for _, session := range sessions {
		if filter.Matches(session) {
			matched = append(matched, session)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].LastUpdated.After(matched[j].LastUpdated)
	})

	return matched, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	if err := persistence.ValidateID(id); err != nil {
		return persistence.NewSessionError("Delete", id, err)
	}

	if err := os.Remove(filepath.Join(r.dir, id+".json")); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewSessionError("Delete", id, persistence.ErrSessionNotFound)
		}

		return persistence.NewSessionError("Delete", id, err)
	}

	return nil
}

// DeleteOlderThan judges age by the recorded last update, not the file mtime.
// Files that cannot be parsed or carry no last update are left in place.
func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	files, err := recordFiles(r.dir)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, file := range files {
		var session models.Session
		if err := readJSON(file, &session); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable session file", "file", file, "error", err)

			continue
		}

		if session.LastUpdated.IsZero() {
			continue
		}

		if session.LastUpdated.Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

func (r *SessionRepository) all() ([]*models.Session, error) {
	files, err := recordFiles(r.dir)
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.Session, 0, len(files))

	for _, file := range files {
		var session models.Session
		if err := readJSON(file, &session); err != nil {
			continue
		}

		sessions = append(sessions, &session)
	}

	return sessions, nil
}
