// Package redisstore provides a Redis-backed persistence layer. Records are JSON values;
// sorted sets scored by update time back listing and age-based cleanup.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "docflow"

// Option configures a Persistence.
type Option func(*Persistence)

// WithPrefix sets the key prefix. Default is "docflow".
func WithPrefix(prefix string) Option {
	return func(p *Persistence) {
		p.prefix = prefix
	}
}

// WithSnapshotTTL lets Redis expire suspended threads on its own. Zero disables expiry.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(p *Persistence) {
		p.snapshotTTL = ttl
	}
}

type Persistence struct {
	client      *redis.Client
	prefix      string
	snapshotTTL time.Duration
}

// NewPersistence wraps an existing client.
func NewPersistence(client *redis.Client, opts ...Option) *Persistence {
	p := &Persistence{client: client, prefix: defaultPrefix}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewPersistenceFromURL parses a redis:// URL and verifies the server is reachable.
func NewPersistenceFromURL(ctx context.Context, url string, opts ...Option) (*Persistence, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistence(client, opts...), nil
}

func (p *Persistence) Sessions() persistence.SessionRepository {
	return &SessionRepository{p: p}
}

func (p *Persistence) Snapshots() persistence.SnapshotRepository {
	return &SnapshotRepository{p: p}
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) sessionKey(id string) string  { return p.prefix + ":session:" + id }
func (p *Persistence) sessionIndex() string         { return p.prefix + ":sessions" }
func (p *Persistence) snapshotKey(id string) string { return p.prefix + ":snapshot:" + id }
func (p *Persistence) snapshotIndex() string        { return p.prefix + ":snapshots" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// expired returns the index members scored strictly before cutoff. Members saved
// without a timestamp score exactly the zero time and never expire.
func (p *Persistence) expired(ctx context.Context, index string, cutoff time.Time) ([]string, error) {
	return p.client.ZRangeByScore(ctx, index, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(time.Time{}.UnixMilli(), 10),
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
}

type SessionRepository struct {
	p *Persistence
}

func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	if err := persistence.ValidateID(session.ID); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.p.client.TxPipeline()
	pipe.Set(ctx, r.p.sessionKey(session.ID), data, 0)
	pipe.ZAdd(ctx, r.p.sessionIndex(), redis.Z{Score: score(session.LastUpdated), Member: session.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.p.client.Get(ctx, r.p.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewSessionError("GetByID", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewSessionError("GetByID", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context, filter persistence.SessionFilter) ([]*models.Session, error) {
	ids, err := r.p.client.ZRevRange(ctx, r.p.sessionIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange failed: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))

	for _, id := range ids {
		session, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsSessionNotFound(err) {
				continue
			}

			return nil, err
		}

		if filter.Matches(session) {
			sessions = append(sessions, session)
		}
	}

	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	pipe := r.p.client.TxPipeline()
	del := pipe.Del(ctx, r.p.sessionKey(id))
	pipe.ZRem(ctx, r.p.sessionIndex(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewSessionError("Delete", id, err)
	}

	if del.Val() == 0 {
		return persistence.NewSessionError("Delete", id, persistence.ErrSessionNotFound)
	}

	return nil
}

func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := r.p.expired(ctx, r.p.sessionIndex(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore failed: %w", err)
	}

	removed := 0

	for _, id := range ids {
		if err := r.Delete(ctx, id); err == nil {
			removed++
		}
	}

	return removed, nil
}

type SnapshotRepository struct {
	p *Persistence
}

func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if err := persistence.ValidateID(snapshot.ThreadID); err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := r.p.client.TxPipeline()
	pipe.Set(ctx, r.p.snapshotKey(snapshot.ThreadID), data, r.p.snapshotTTL)
	pipe.ZAdd(ctx, r.p.snapshotIndex(), redis.Z{Score: score(now), Member: snapshot.ThreadID})

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewSnapshotError("SaveSnapshot", snapshot.ThreadID, err)
	}

	return nil
}

func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, threadID string) (*models.Snapshot, error) {
	data, err := r.p.client.Get(ctx, r.p.snapshotKey(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, persistence.ErrSnapshotNotFound)
		}

		return nil, persistence.NewSnapshotError("LoadSnapshot", threadID, err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteSnapshot(ctx context.Context, threadID string) error {
	pipe := r.p.client.TxPipeline()
	pipe.Del(ctx, r.p.snapshotKey(threadID))
	pipe.ZRem(ctx, r.p.snapshotIndex(), threadID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewSnapshotError("DeleteSnapshot", threadID, err)
	}

	return nil
}

func (r *SnapshotRepository) CleanupExpiredSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := r.p.expired(ctx, r.p.snapshotIndex(), time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore failed: %w", err)
	}

	for _, id := range ids {
		if err := r.DeleteSnapshot(ctx, id); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}
