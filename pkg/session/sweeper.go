package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/metrics"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the retention sweep once an hour.
const DefaultSchedule = "@hourly"

// Sweeper periodically removes expired sessions and the snapshots of abandoned threads.
type Sweeper struct {
	registry      *Registry
	snapshots     persistence.SnapshotRepository
	retentionDays int
	publisher     eventbus.EventPublisher
	metrics       *metrics.Metrics
	cron          *cron.Cron
	logger        *slog.Logger
}

type SweepResult struct {
	Sessions  int
	Snapshots int
}

func NewSweeper(
	logger *slog.Logger,
	registry *Registry,
	snapshots persistence.SnapshotRepository,
	retentionDays int,
	publisher eventbus.EventPublisher,
	m *metrics.Metrics,
) *Sweeper {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	return &Sweeper{
		registry:      registry,
		snapshots:     snapshots,
		retentionDays: retentionDays,
		publisher:     publisher,
		metrics:       m,
		logger:        logger.With("module", "session_sweeper", "retention_days", retentionDays),
	}
}

// Start schedules the sweep. The schedule accepts standard cron expressions and descriptors like @hourly.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule: %w", err)
	}

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	s.logger.Info("Session cleanup scheduled", "schedule", schedule, "entry_id", id)
	s.cron.Start()

	return nil
}

func (s *Sweeper) run() {
	if _, err := s.Sweep(context.Background()); err != nil {
		s.logger.Error("Session cleanup failed", "error", err)
	}
}

// Sweep removes expired sessions and snapshots once and reports the counts.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	sessions, err := s.registry.Cleanup(ctx, s.retentionDays)
	if err != nil {
		return result, err
	}

	result.Sessions = sessions

	snapshots, err := s.snapshots.CleanupExpiredSnapshots(ctx, time.Duration(s.retentionDays)*24*time.Hour)
	if err != nil {
		return result, fmt.Errorf("failed to clean up snapshots: %w", err)
	}

	result.Snapshots = snapshots

	s.metrics.RecordCleanup(result.Sessions, result.Snapshots)

	if s.publisher != nil {
		event := events.SessionCleanupCompleted{
			BaseEvent:        events.NewBaseEvent(events.SessionCleanupCompletedEvent, ""),
			RetentionDays:    s.retentionDays,
			SessionsDeleted:  result.Sessions,
			SnapshotsDeleted: result.Snapshots,
		}

		if err := s.publisher.Publish(ctx, "session-cleanup", event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish cleanup event", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Session cleanup completed", "sessions", result.Sessions, "snapshots", result.Snapshots)

	return result, nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
