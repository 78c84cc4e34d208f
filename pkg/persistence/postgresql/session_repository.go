package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// SessionRepository handles session persistence in PostgreSQL.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

const sessionColumns = `session_id, thread_id, agent_type, status, interrupt_info, created_at, last_updated`

func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	if err := persistence.ValidateID(session.ID); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	var interruptJSON any

	if session.InterruptInfo != nil {
		data, err := json.Marshal(session.InterruptInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal interrupt info: %w", err)
		}

		interruptJSON = string(data)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			agent_type = EXCLUDED.agent_type,
			status = EXCLUDED.status,
			interrupt_info = EXCLUDED.interrupt_info,
			last_updated = EXCLUDED.last_updated
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.ThreadID,
		session.AgentType,
		string(session.Status),
		interruptJSON,
		session.CreatedAt,
		session.LastUpdated,
	)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	return session, nil
}

func (r *SessionRepository) List(ctx context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.AgentType != "" {
		args = append(args, filter.AgentType)
		conditions = append(conditions, fmt.Sprintf("agent_type = $%d", len(args)))
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY last_updated DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.Session

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, id)
	if err != nil {
		return persistence.NewSessionError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewSessionError("Delete", id, persistence.ErrSessionNotFound)
	}

	return nil
}

func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	// rows saved without a last update hold the zero time and are kept
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_updated < $1 AND last_updated > $2`, cutoff, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		r.logger.InfoContext(ctx, "Deleted expired sessions", "count", rowsAffected, "cutoff", cutoff)
	}

	return int(rowsAffected), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		session       models.Session
		status        string
		interruptJSON []byte
	)

	err := row.Scan(
		&session.ID,
		&session.ThreadID,
		&session.AgentType,
		&status,
		&interruptJSON,
		&session.CreatedAt,
		&session.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionStatus(status)

	if len(interruptJSON) > 0 {
		var info models.InterruptInfo
		if err := json.Unmarshal(interruptJSON, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interrupt info: %w", err)
		}

		session.InterruptInfo = &info
	}

	return &session, nil
}
