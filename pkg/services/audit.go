package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/metrics"
)

// Audit consumes lifecycle events from the bus, writing each one to the log and counting it.
type Audit struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAudit(logger *slog.Logger, m *metrics.Metrics) *Audit {
	return &Audit{
		metrics: m,
		logger:  logger.With("module", "event_audit"),
	}
}

// Register installs the audit handler for every docflow event type on subscriber.
func (a *Audit) Register(subscriber eventbus.EventSubscriber) error {
	for _, eventType := range events.AllEventTypes() {
		if err := subscriber.Handle(eventType, a.handle); err != nil {
			return fmt.Errorf("failed to subscribe to %s events: %w", eventType, err)
		}
	}

	return nil
}

func (a *Audit) handle(ctx context.Context, eventData any) error {
	event, ok := eventData.(interface{ Envelope() events.BaseEvent })
	if !ok {
		return fmt.Errorf("unexpected event payload: %T", eventData)
	}

	base := event.Envelope()
	attrs := []any{
		"event_id", base.ID,
		"event_type", base.Type,
		"thread_id", base.ThreadID,
		"session_id", base.SessionID,
	}

	switch e := eventData.(type) {
	case *events.WorkflowSuspended:
		attrs = append(attrs, "next_node", e.NextNode, "doc_type", e.DocumentType)
	case *events.WorkflowCompleted:
		attrs = append(attrs, "doc_type", e.DocumentType, "document_path", e.DocumentPath, "used_fallback", e.UsedFallback)
	case *events.WorkflowViolation:
		attrs = append(attrs, "doc_type", e.DocumentType, "violations", len(e.Violations))
	case *events.WorkflowFailed:
		attrs = append(attrs, "doc_type", e.DocumentType, "error", e.Error)
	case *events.SessionCleanupCompleted:
		attrs = append(attrs, "sessions_deleted", e.SessionsDeleted, "snapshots_deleted", e.SnapshotsDeleted)
	}

	a.logger.InfoContext(ctx, "Lifecycle event", attrs...)
	a.metrics.RecordEvent(string(base.Type))

	return nil
}
