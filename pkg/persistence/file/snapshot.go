package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// SnapshotRepository keeps one <thread_id>.json file per suspended thread.
type SnapshotRepository struct {
	dir string
}

func NewSnapshotRepository(dir string) *SnapshotRepository {
	return &SnapshotRepository{dir: dir}
}

func (r *SnapshotRepository) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	if err := persistence.ValidateID(snapshot.ThreadID); err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	return writeJSON(r.dir, snapshot.ThreadID, snapshot)
}

func (r *SnapshotRepository) LoadSnapshot(_ context.Context, threadID string) (*models.Snapshot, error) {
	if err := persistence.ValidateID(threadID); err != nil {
		return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, err)
	}

	var snapshot models.Snapshot
	if err := readJSON(filepath.Join(r.dir, threadID+".json"), &snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, persistence.ErrSnapshotNotFound)
		}

		return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, err)
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteSnapshot(_ context.Context, threadID string) error {
	if err := persistence.ValidateID(threadID); err != nil {
		return persistence.NewSnapshotError("DeleteSnapshot", threadID, err)
	}

	if err := os.Remove(filepath.Join(r.dir, threadID+".json")); err != nil && !os.IsNotExist(err) {
		return persistence.NewSnapshotError("DeleteSnapshot", threadID, err)
	}

	return nil
}

func (r *SnapshotRepository) CleanupExpiredSnapshots(_ context.Context, maxAge time.Duration) (int, error) {
	files, err := recordFiles(r.dir)
	if err != nil {
		return 0, err
	}

	cutoffTime := time.Now().Add(-maxAge)
	removed := 0

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}
