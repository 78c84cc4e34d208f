package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// SnapshotRepository stores suspended workflow state as JSONB.
type SnapshotRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSnapshotRepository(db *sql.DB, logger *slog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger}
}

func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if err := persistence.ValidateID(snapshot.ThreadID); err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	stateJSON, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	query := `
		INSERT INTO workflow_snapshots (thread_id, next_node, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (thread_id) DO UPDATE SET
			next_node = EXCLUDED.next_node,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, snapshot.ThreadID, snapshot.NextNode, stateJSON, snapshot.CreatedAt, snapshot.UpdatedAt)
	if err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	return nil
}

func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, threadID string) (*models.Snapshot, error) {
	query := `
		SELECT thread_id, next_node, state, created_at, updated_at
		FROM workflow_snapshots
		WHERE thread_id = $1
	`

	var (
		snapshot  models.Snapshot
		stateJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, threadID).Scan(
		&snapshot.ThreadID,
		&snapshot.NextNode,
		&stateJSON,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, persistence.ErrSnapshotNotFound)
		}

		return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, err)
	}

	if err := json.Unmarshal(stateJSON, &snapshot.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow state: %w", err)
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteSnapshot(ctx context.Context, threadID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_snapshots WHERE thread_id = $1`, threadID)
	if err != nil {
		return persistence.NewSnapshotError("DeleteSnapshot", threadID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		r.logger.DebugContext(ctx, "snapshot not found for deletion", "thread_id", threadID)
	}

	return nil
}

func (r *SnapshotRepository) CleanupExpiredSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoffTime := time.Now().Add(-maxAge)

	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_snapshots WHERE updated_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired snapshots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		r.logger.InfoContext(ctx, "Cleaned up expired snapshots", "count", rowsAffected, "cutoff", cutoffTime)
	}

	return int(rowsAffected), nil
}
