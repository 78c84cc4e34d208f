package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/interrupt"
	"github.com/dukex/docflow/pkg/metrics"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/policy"
	"github.com/dukex/docflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DocumentAgent is the agent name the document service is registered under.
const DocumentAgent = "docs_agent"

type sessionKey struct{}

// WithSessionID tags ctx with the client session driving the call. Lifecycle events carry it.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)

	return id
}

// Conversations runs workflow threads and keeps their suspensions.
type Conversations interface {
	Start(ctx context.Context, threadID, request string) (workflow.Outcome, error)
	Resume(ctx context.Context, threadID, reply string, kind workflow.ReplyKind) (workflow.Outcome, error)
}

// Document drives document conversations and reports every outcome as a WorkflowResult.
// Faults inside a call, panics included, become failure results rather than errors;
// only caller mistakes are returned as errors.
type Document struct {
	conversations Conversations
	publisher     eventbus.EventPublisher
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	logger        *slog.Logger
}

type DocumentOption func(*Document)

func WithPublisher(publisher eventbus.EventPublisher) DocumentOption {
	return func(d *Document) {
		d.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) DocumentOption {
	return func(d *Document) {
		d.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) DocumentOption {
	return func(d *Document) {
		d.tracer = tracer
	}
}

func NewDocument(logger *slog.Logger, conversations Conversations, opts ...DocumentOption) *Document {
	d := &Document{
		conversations: conversations,
		tracer:        otelhelper.Tracer("docflow.services"),
		logger:        logger.With("module", "document_service"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run starts a new document conversation on threadID.
func (d *Document) Run(ctx context.Context, threadID, request string) (result models.WorkflowResult, err error) {
	if strings.TrimSpace(request) == "" {
		return models.WorkflowResult{}, NewValidationError("run", "empty_message", "message is required", ErrEmptyMessage)
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.run",
		attribute.String(otelhelper.ThreadIDKey, threadID),
		attribute.String(otelhelper.SessionIDKey, sessionIDFrom(ctx)),
	)
	defer span.End()

	started := time.Now()
	defer d.recoverPanic(ctx, "run", threadID, started, &result, &err)

	d.logger.InfoContext(ctx, "Starting document workflow", "thread_id", threadID)

	d.publish(ctx, events.WorkflowStarted{
		BaseEvent: d.baseEvent(ctx, events.WorkflowStartedEvent, threadID),
		Agent:     DocumentAgent,
	})

	outcome, runErr := d.conversations.Start(ctx, threadID, request)
	if runErr != nil {
		otelhelper.SetError(span, runErr)

		return d.fail(ctx, "run", threadID, "", runErr, started), nil
	}

	return d.complete(ctx, "run", threadID, outcome, started), nil
}

// Resume feeds reply to the suspended thread. It fails with ErrNoPendingSuspension when
// the thread is not waiting for input.
func (d *Document) Resume(ctx context.Context, threadID, reply string, kind workflow.ReplyKind) (result models.WorkflowResult, err error) {
	if !kind.IsValid() {
		return models.WorkflowResult{}, NewValidationError("resume", "invalid_reply_kind",
			fmt.Sprintf("reply kind must be %q or %q", workflow.ReplyUser, workflow.ReplyVerification), ErrInvalidReplyKind)
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.resume",
		attribute.String(otelhelper.ThreadIDKey, threadID),
		attribute.String(otelhelper.SessionIDKey, sessionIDFrom(ctx)),
	)
	defer span.End()

	started := time.Now()
	defer d.recoverPanic(ctx, "resume", threadID, started, &result, &err)

	outcome, resumeErr := d.conversations.Resume(ctx, threadID, reply, kind)
	if resumeErr != nil {
		if errors.Is(resumeErr, interrupt.ErrNoPendingSuspension) {
			return models.WorkflowResult{}, &ServiceError{
				Op:   "resume",
				Code: "no_pending_suspension",
				Err:  fmt.Errorf("%w: %s", ErrNoPendingSuspension, threadID),
			}
		}

		otelhelper.SetError(span, resumeErr)

		return d.fail(ctx, "resume", threadID, "", resumeErr, started), nil
	}

	if len(outcome.Trace) > 0 {
		d.publish(ctx, events.WorkflowResumed{
			BaseEvent: d.baseEvent(ctx, events.WorkflowResumedEvent, threadID),
			FromNode:  outcome.Trace[0].String(),
			ReplyKind: string(kind),
		})
	}

	return d.complete(ctx, "resume", threadID, outcome, started), nil
}

func (d *Document) complete(ctx context.Context, op, threadID string, outcome workflow.Outcome, started time.Time) models.WorkflowResult {
	result := resultOf(threadID, outcome)
	state := outcome.State

	if suspended, ok := outcome.Suspension(); ok {
		d.metrics.RecordSuspension(suspended.At.String())
		d.metrics.RecordOutcome(op, "suspended", time.Since(started))
		d.publish(ctx, events.WorkflowSuspended{
			BaseEvent:    d.baseEvent(ctx, events.WorkflowSuspendedEvent, threadID),
			NextNode:     suspended.At.String(),
			DocumentType: state.DocumentType,
		})

		return result
	}

	terminal, _ := outcome.Terminal()
	d.metrics.RecordOutcome(op, terminal.Kind.String(), time.Since(started))

	switch terminal.Kind {
	case workflow.Completed:
		d.publish(ctx, events.WorkflowCompleted{
			BaseEvent:    d.baseEvent(ctx, events.WorkflowCompletedEvent, threadID),
			DocumentType: state.DocumentType,
			DocumentPath: state.FinalDocument,
			FieldCount:   len(state.FilledFields),
			UsedFallback: state.UsedFallback,
		})
	case workflow.Violated:
		d.publish(ctx, events.WorkflowViolation{
			BaseEvent:    d.baseEvent(ctx, events.WorkflowViolationEvent, threadID),
			DocumentType: state.DocumentType,
			Report:       state.Violation,
			Violations:   result.Violations,
		})
	case workflow.Aborted:
		d.publish(ctx, events.WorkflowAborted{
			BaseEvent: d.baseEvent(ctx, events.WorkflowAbortedEvent, threadID),
		})
	case workflow.Failed:
		d.publish(ctx, events.WorkflowFailed{
			BaseEvent:    d.baseEvent(ctx, events.WorkflowFailedEvent, threadID),
			DocumentType: state.DocumentType,
			Error:        result.Error,
		})
	}

	return result
}

func (d *Document) fail(ctx context.Context, op, threadID string, docType models.DocumentType, err error, started time.Time) models.WorkflowResult {
	d.logger.ErrorContext(ctx, "Document workflow failed", "operation", op, "thread_id", threadID, "error", err)
	d.metrics.RecordOutcome(op, workflow.Failed.String(), time.Since(started))
	d.publish(ctx, events.WorkflowFailed{
		BaseEvent:    d.baseEvent(ctx, events.WorkflowFailedEvent, threadID),
		DocumentType: docType,
		Error:        err.Error(),
	})

	return models.FailureResult(threadID, err)
}

// recoverPanic must be deferred directly so recover sees the panic.
func (d *Document) recoverPanic(ctx context.Context, op, threadID string, started time.Time, result *models.WorkflowResult, err *error) {
	r := recover()
	if r == nil {
		return
	}

	*result = d.fail(ctx, op, threadID, "", fmt.Errorf("%w: %v", ErrInternal, r), started)
	*err = nil
}

func (d *Document) baseEvent(ctx context.Context, eventType events.EventType, threadID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, threadID)
	base.SessionID = sessionIDFrom(ctx)

	return base
}

func (d *Document) publish(ctx context.Context, event eventbus.Event) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.Publish(ctx, string(event.GetType()), event); err != nil {
		d.logger.WarnContext(ctx, "Failed to publish workflow event", "event_type", event.GetType(), "error", err)
	}
}

// resultOf converts an engine outcome into the caller-facing result shape.
func resultOf(threadID string, outcome workflow.Outcome) models.WorkflowResult {
	state := outcome.State

	if suspended, ok := outcome.Suspension(); ok {
		return models.WorkflowResult{
			Interrupted:  true,
			ThreadID:     threadID,
			NextNode:     suspended.At.String(),
			DocumentType: state.DocumentType,
			StateInfo:    state.StateInfo(),
			Prompt:       suspended.Prompt,
		}
	}

	terminal, _ := outcome.Terminal()
	result := models.WorkflowResult{
		ThreadID:     threadID,
		DocumentType: state.DocumentType,
		FilledFields: state.FilledFields,
	}

	switch terminal.Kind {
	case workflow.Completed:
		result.Success = true
		result.ArtifactPath = state.FinalDocument
	case workflow.Violated:
		result.Violation = state.Violation
		result.Violations = policy.ParseViolations(state.Violation)
	case workflow.Aborted:
		result.Aborted = true
	case workflow.Failed:
		result.Error = state.Error
		if result.Error == "" && terminal.Err != nil {
			result.Error = terminal.Err.Error()
		}
	}

	return result
}
