package mocks

import (
	"context"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock implementation of persistence.SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)

	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)

	return args.Int(0), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of persistence.SnapshotRepository interface.
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	args := m.Called(ctx, snapshot)

	return args.Error(0)
}

func (m *MockSnapshotRepository) LoadSnapshot(ctx context.Context, threadID string) (*models.Snapshot, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteSnapshot(ctx context.Context, threadID string) error {
	args := m.Called(ctx, threadID)

	return args.Error(0)
}

func (m *MockSnapshotRepository) CleanupExpiredSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)

	return args.Int(0), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	SessionRepo  *MockSessionRepository
	SnapshotRepo *MockSnapshotRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		SessionRepo:  &MockSessionRepository{},
		SnapshotRepo: &MockSnapshotRepository{},
	}
}

func (m *MockPersistence) Sessions() persistence.SessionRepository {
	return m.SessionRepo
}

func (m *MockPersistence) Snapshots() persistence.SnapshotRepository {
	return m.SnapshotRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
