// Package workflow runs the document-generation state machine: classify the requested
// document, confirm it with the user, collect and screen the content, then render.
//
// The engine is pure with respect to persistence. A run stops at the first suspend point
// or terminal node and hands back the state; saving and resuming it is the caller's job.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/templates"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxPromptAttempts caps the verification and manual selection loops.
	DefaultMaxPromptAttempts = 5

	// MaxParseRetries is the number of failed extractions after which fallback values are used.
	MaxParseRetries = 3

	maxTransitions = 64
)

var ErrMissingOracle = errors.New("workflow engine requires every oracle")

// Renderer turns a filled field map into a document file and returns its path.
type Renderer interface {
	Render(ctx context.Context, docType models.DocumentType, fields map[string]string) (string, error)
}

type Engine struct {
	oracles           oracle.Set
	catalog           *templates.Catalog
	renderer          Renderer
	maxPromptAttempts int
	tracer            trace.Tracer
	logger            *slog.Logger
}

type Option func(*Engine)

// WithMaxPromptAttempts sets how many times the user is asked to confirm or pick a
// document type before the run fails. Zero disables the cap.
func WithMaxPromptAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxPromptAttempts = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func NewEngine(logger *slog.Logger, oracles oracle.Set, catalog *templates.Catalog, renderer Renderer, opts ...Option) (*Engine, error) {
	if oracles.Separator == nil || oracles.Classifier == nil || oracles.Intent == nil ||
		oracles.Extractor == nil || oracles.Policy == nil {
		return nil, ErrMissingOracle
	}

	if catalog == nil {
		return nil, errors.New("workflow engine requires a template catalog")
	}

	if renderer == nil {
		return nil, errors.New("workflow engine requires a renderer")
	}

	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		oracles:           oracles,
		catalog:           catalog,
		renderer:          renderer,
		maxPromptAttempts: DefaultMaxPromptAttempts,
		tracer:            otelhelper.Tracer("github.com/dukex/docflow/pkg/workflow"),
		logger:            logger.With("module", "workflow_engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Outcome is the result of one run segment. Step is either Suspended or Terminal.
type Outcome struct {
	State models.WorkflowState
	Step  Step
	Trace []NodeID
}

func (o Outcome) Suspension() (Suspended, bool) {
	s, ok := o.Step.(Suspended)

	return s, ok
}

func (o Outcome) Terminal() (Terminal, bool) {
	t, ok := o.Step.(Terminal)

	return t, ok
}

// Start runs a new conversation for request until it suspends or ends.
func (e *Engine) Start(ctx context.Context, request string) (Outcome, error) {
	return e.RunFrom(ctx, NodeClassifyDocType, models.NewWorkflowState(request))
}

// RunFrom executes nodes beginning at start until one suspends or terminates the run.
// Resuming a suspended conversation is RunFrom at the suspend point with the reply injected.
func (e *Engine) RunFrom(ctx context.Context, start NodeID, state models.WorkflowState) (Outcome, error) {
	if _, ok := nodeNames[start]; !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownNode, start)
	}

	out := Outcome{State: state.Clone()}
	current := start

	for range maxTransitions {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, out, Terminal{Kind: Failed, Err: err}), nil
		}

		out.Trace = append(out.Trace, current)

		next, step := e.runNode(ctx, current, out.State)
		out.State = next

		switch s := step.(type) {
		case Continue:
			current = s.Next
		case Suspended:
			out.Step = s
			e.logger.InfoContext(ctx, "Workflow suspended", "next_node", s.At.String(), "doc_type", next.DocumentType)

			return out, nil
		case Terminal:
			return e.finish(ctx, out, s), nil
		}
	}

	return e.finish(ctx, out, Terminal{Kind: Failed, Err: ErrTransitionLimit}), nil
}

func (e *Engine) finish(ctx context.Context, out Outcome, t Terminal) Outcome {
	out.State.Terminated = true
	if t.Kind == Aborted {
		out.State.Aborted = true
	}

	if t.Err != nil && out.State.Error == "" {
		out.State.Error = t.Err.Error()
	}

	out.Step = t

	if t.Err != nil {
		e.logger.WarnContext(ctx, "Workflow ended", "outcome", t.Kind.String(), "error", t.Err)
	} else {
		e.logger.InfoContext(ctx, "Workflow ended", "outcome", t.Kind.String(), "document", out.State.FinalDocument)
	}

	return out
}

func (e *Engine) runNode(ctx context.Context, node NodeID, s models.WorkflowState) (models.WorkflowState, Step) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow."+node.String(),
		attribute.String(otelhelper.NodeKey, node.String()),
		attribute.String(otelhelper.DocumentTypeKey, s.DocumentType.String()),
	)
	defer span.End()

	next, step := e.dispatch(ctx, node, s)

	if t, ok := step.(Terminal); ok {
		span.SetAttributes(attribute.String(otelhelper.OutcomeKey, t.Kind.String()))

		if t.Err != nil {
			otelhelper.SetError(span, t.Err)
		}
	}

	return next, step
}

func (e *Engine) dispatch(ctx context.Context, node NodeID, s models.WorkflowState) (models.WorkflowState, Step) {
	switch node {
	case NodeClassifyDocType:
		return e.classifyDocType(ctx, s)
	case NodeValidateDocType:
		return e.validateDocType(ctx, s)
	case NodeVerifyClassification:
		return e.verifyClassification(ctx, s)
	case NodeReceiveVerificationInput:
		return e.receiveVerificationInput(ctx, s)
	case NodeProcessVerificationResponse:
		return e.processVerificationResponse(ctx, s)
	case NodeAskManualDocTypeSelection:
		return e.askManualDocTypeSelection(ctx, s)
	case NodeReceiveManualDocTypeInput:
		return e.receiveManualDocTypeInput(ctx, s)
	case NodeProcessManualDocTypeSelection:
		return e.processManualDocTypeSelection(ctx, s)
	case NodeAskRequiredFields:
		return e.askRequiredFields(ctx, s)
	case NodeReceiveUserInput:
		return e.receiveUserInput(ctx, s)
	case NodeCheckUserInputPolicy:
		return e.checkUserInputPolicy(ctx, s)
	case NodeParseUserInput:
		return e.parseUserInput(ctx, s)
	case NodeInformViolation:
		return e.informViolation(ctx, s)
	case NodeCreateDocument:
		return e.createDocument(ctx, s)
	default:
		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: %s", ErrUnknownNode, node)}
	}
}

// WithReply prepares a suspended state for resumption: the reply fills the field
// selected by kind and is appended to the conversation history.
func WithReply(s models.WorkflowState, kind ReplyKind, reply string) models.WorkflowState {
	out := s.WithMessage(models.RoleUser, reply)

	switch kind {
	case ReplyVerification:
		out.VerificationReply = reply
	default:
		out.UserReply = reply
	}

	return out
}
