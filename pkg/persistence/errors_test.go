package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/docflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		sessionErr := persistence.NewSessionError("GetByID", "session-123", persistence.ErrSessionNotFound)
		snapshotErr := persistence.NewSnapshotError("LoadSnapshot", "thread-456", persistence.ErrSnapshotNotFound)

		assert.True(t, persistence.IsSessionNotFound(sessionErr))
		assert.False(t, persistence.IsSessionNotFound(snapshotErr))
		assert.True(t, persistence.IsSnapshotNotFound(snapshotErr))

		assert.True(t, errors.Is(sessionErr, persistence.ErrSessionNotFound))
	})

	t.Run("session error contains context", func(t *testing.T) {
		err := persistence.NewSessionError("Delete", "session-123", persistence.ErrSessionNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "session-123")
		assert.Contains(t, err.Error(), "session not found")
	})

	t.Run("snapshot error contains context", func(t *testing.T) {
		err := persistence.NewSnapshotError("SaveSnapshot", "thread-9", persistence.ErrInvalidID)

		assert.Contains(t, err.Error(), "thread-9")
		assert.Contains(t, err.Error(), "invalid identifier")
		assert.True(t, persistence.IsInvalidID(err))
		assert.False(t, persistence.IsSessionNotFound(err))
	})
}
