// Package persistencetest holds behaviour checks shared by every persistence backend.
package persistencetest

import (
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id, agent string, status models.SessionStatus, updated time.Time) *models.Session {
	return &models.Session{
		ID:          id,
		ThreadID:    "thread-" + id,
		AgentType:   agent,
		Status:      status,
		CreatedAt:   updated.Add(-time.Minute),
		LastUpdated: updated,
	}
}

// SessionRepository runs the common session store checks against repo.
// repo must start empty.
func SessionRepository(t *testing.T, repo persistence.SessionRepository) {
	t.Helper()

	ctx := t.Context()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("get missing session", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		require.Error(t, err)
		assert.True(t, persistence.IsSessionNotFound(err))
	})

	t.Run("save and get round trip", func(t *testing.T) {
		session := newSession("s-1", "docs_agent", models.SessionInterrupted, now)
		session.InterruptInfo = &models.InterruptInfo{
			ThreadID:     session.ThreadID,
			NextNode:     "receive_user_input",
			DocumentType: models.SalesVisitReport,
		}

		require.NoError(t, repo.Save(ctx, session))

		got, err := repo.GetByID(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "thread-s-1", got.ThreadID)
		assert.Equal(t, models.SessionInterrupted, got.Status)
		require.NotNil(t, got.InterruptInfo)
		assert.Equal(t, "receive_user_input", got.InterruptInfo.NextNode)
		assert.Equal(t, models.SalesVisitReport, got.InterruptInfo.DocumentType)
		assert.True(t, now.Equal(got.LastUpdated))
	})

	t.Run("save replaces existing record", func(t *testing.T) {
		session := newSession("s-1", "docs_agent", models.SessionCompleted, now.Add(time.Second))
		require.NoError(t, repo.Save(ctx, session))

		got, err := repo.GetByID(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, models.SessionCompleted, got.Status)
		assert.Nil(t, got.InterruptInfo)
	})

	t.Run("list filters and orders by last update", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newSession("s-2", "docs_agent", models.SessionActive, now.Add(2*time.Second))))
		require.NoError(t, repo.Save(ctx, newSession("s-3", "employee_agent", models.SessionActive, now.Add(3*time.Second))))

		all, err := repo.List(ctx, persistence.SessionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "s-3", all[0].ID)
		assert.Equal(t, "s-2", all[1].ID)
		assert.Equal(t, "s-1", all[2].ID)

		docs, err := repo.List(ctx, persistence.SessionFilter{AgentType: "docs_agent"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)

		active, err := repo.List(ctx, persistence.SessionFilter{AgentType: "docs_agent", Status: models.SessionActive})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "s-2", active[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "s-2"))

		_, err := repo.GetByID(ctx, "s-2")
		assert.True(t, persistence.IsSessionNotFound(err))

		err = repo.Delete(ctx, "s-2")
		assert.True(t, persistence.IsSessionNotFound(err))
	})

	t.Run("delete older than cutoff", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newSession("old", "docs_agent", models.SessionCompleted, now.Add(-10*24*time.Hour))))

		removed, err := repo.DeleteOlderThan(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = repo.GetByID(ctx, "old")
		assert.True(t, persistence.IsSessionNotFound(err))

		remaining, err := repo.List(ctx, persistence.SessionFilter{})
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
	})

	t.Run("delete older than keeps sessions without last update", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, &models.Session{
			ID:        "legacy",
			ThreadID:  "thread-legacy",
			AgentType: "docs_agent",
			Status:    models.SessionInterrupted,
		}))

		removed, err := repo.DeleteOlderThan(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, removed)

		got, err := repo.GetByID(ctx, "legacy")
		require.NoError(t, err)
		assert.True(t, got.LastUpdated.IsZero())
	})
}

// SnapshotRepository runs the common snapshot store checks against repo.
func SnapshotRepository(t *testing.T, repo persistence.SnapshotRepository) {
	t.Helper()

	ctx := t.Context()

	t.Run("load missing snapshot", func(t *testing.T) {
		_, err := repo.LoadSnapshot(ctx, "nope")
		require.Error(t, err)
		assert.True(t, persistence.IsSnapshotNotFound(err))
	})

	t.Run("save and load preserves state", func(t *testing.T) {
		state := models.NewWorkflowState("영업방문 보고서 작성해줘")
		state.DocumentType = models.SalesVisitReport
		state.FilledFields = map[string]string{"방문제목": "신제품 소개"}
		state.ParseRetryCount = 2

		require.NoError(t, repo.SaveSnapshot(ctx, &models.Snapshot{
			ThreadID: "t-1",
			NextNode: "receive_user_input",
			State:    state,
		}))

		got, err := repo.LoadSnapshot(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "receive_user_input", got.NextNode)
		assert.Equal(t, state.Messages, got.State.Messages)
		assert.Equal(t, models.SalesVisitReport, got.State.DocumentType)
		assert.Equal(t, "신제품 소개", got.State.FilledFields["방문제목"])
		assert.Equal(t, 2, got.State.ParseRetryCount)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("save overwrites previous snapshot", func(t *testing.T) {
		require.NoError(t, repo.SaveSnapshot(ctx, &models.Snapshot{
			ThreadID: "t-1",
			NextNode: "receive_verification_input",
			State:    models.NewWorkflowState("다른 요청"),
		}))

		got, err := repo.LoadSnapshot(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "receive_verification_input", got.NextNode)
		assert.Equal(t, "다른 요청", got.State.LatestMessage())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteSnapshot(ctx, "t-1"))
		require.NoError(t, repo.DeleteSnapshot(ctx, "t-1"))

		_, err := repo.LoadSnapshot(ctx, "t-1")
		assert.True(t, persistence.IsSnapshotNotFound(err))
	})

	t.Run("cleanup keeps fresh snapshots", func(t *testing.T) {
		require.NoError(t, repo.SaveSnapshot(ctx, &models.Snapshot{ThreadID: "t-2", NextNode: "receive_user_input"}))

		removed, err := repo.CleanupExpiredSnapshots(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)

		_, err = repo.LoadSnapshot(ctx, "t-2")
		assert.NoError(t, err)
	})
}
