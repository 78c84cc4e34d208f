package redisstore

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/persistencetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPersistence(t *testing.T, opts ...Option) (*Persistence, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewPersistence(client, opts...), mr
}

func TestSessionRepository(t *testing.T) {
	p, _ := setupPersistence(t)

	persistencetest.SessionRepository(t, p.Sessions())
}

func TestSnapshotRepository(t *testing.T) {
	p, _ := setupPersistence(t)

	persistencetest.SnapshotRepository(t, p.Snapshots())
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, mr := setupPersistence(t)

	require.NoError(t, p.HealthCheck(t.Context()))

	mr.Close()
	assert.Error(t, p.HealthCheck(t.Context()))
}

func TestPersistence_UsesPrefix(t *testing.T) {
	p, mr := setupPersistence(t, WithPrefix("tenant-a"))

	require.NoError(t, p.Sessions().Save(t.Context(), &models.Session{
		ID:          "s1",
		ThreadID:    "t1",
		AgentType:   "docs_agent",
		Status:      models.SessionActive,
		LastUpdated: time.Now(),
	}))

	assert.True(t, mr.Exists("tenant-a:session:s1"))
}

func TestSnapshotRepository_TTL(t *testing.T) {
	p, mr := setupPersistence(t, WithSnapshotTTL(time.Minute))

	require.NoError(t, p.Snapshots().SaveSnapshot(t.Context(), &models.Snapshot{
		ThreadID: "t1",
		NextNode: "receive_user_input",
	}))

	mr.FastForward(2 * time.Minute)

	_, err := p.Snapshots().LoadSnapshot(t.Context(), "t1")
	assert.True(t, persistence.IsSnapshotNotFound(err))
}
