package router

import (
	"context"
	"fmt"
	"log/slog"
	"errors"
	"strings"

	"github.com/dukex/docflow/pkg/interrupt"
	"github.com/dukex/docflow/pkg/metrics"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/session"
	"github.com/dukex/docflow/pkg/workflow"
	"github.com/google/uuid"
)

// Documents is the document workflow the docs agent is backed by.
type Documents interface {
	Run(ctx context.Context, threadID, request string) (models.WorkflowResult, error)
	Resume(ctx context.Context, threadID, reply string, kind workflow.ReplyKind) (models.WorkflowResult, error)
}

// Handler serves one of the non-document agents.
type Handler interface {
	Handle(ctx context.Context, sessionID, query string) (Reply, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sessionID, query string) (Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, sessionID, query string) (Reply, error) {
	return f(ctx, sessionID, query)
}

// Reply is a handler's answer.
type Reply struct {
	Text string
	Data map[string]any
}

// Response is the outcome of one routed request. Result is set for the docs agent,
// Reply text and Data for the others, and Response alone for the help message.
type Response struct {
	Success           bool
	SessionID         string
	Agent             string
	RequiresInterrupt bool
	Response          string
	Result            *models.WorkflowResult
	Data              map[string]any
	Error             string
	Decision          *Decision
}

// Status describes a session as seen by clients.
type Status struct {
	Exists    bool   `json:"exists"`
	SessionID string `json:"session_id"`
	Agent     string `json:"agent,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

const (
	statusActive   = "active"
	statusInactive = "inactive"
)

type Router struct {
	registry   *session.Registry
	documents  Documents
	handlers   map[string]Handler
	classifier oracle.AgentClassifier
	metrics    *metrics.Metrics
	sessions   *interrupt.KeyedMutex
	logger     *slog.Logger
}

type Option func(*Router)

// WithHandler registers the handler serving agent.
func WithHandler(agent string, handler Handler) Option {
	return func(r *Router) {
		r.handlers[agent] = handler
	}
}

// WithAgentClassifier adds a model opinion to keyword routing.
func WithAgentClassifier(classifier oracle.AgentClassifier) Option {
	return func(r *Router) {
		r.classifier = classifier
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

func New(logger *slog.Logger, registry *session.Registry, documents Documents, opts ...Option) *Router {
	r := &Router{
		registry:  registry,
		documents: documents,
		handlers:  make(map[string]Handler),
		sessions:  interrupt.NewKeyedMutex(),
		logger:    logger.With("module", "router"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Agents lists every known agent and whether it can serve requests.
func (r *Router) Agents() []Metadata {
	agents := DefaultAgents()
	for i := range agents {
		agents[i].Available = r.available(agents[i].Name)
	}

	return agents
}

func (r *Router) available(agent string) bool {
	if agent == DocsAgent {
		return r.documents != nil
	}

	_, ok := r.handlers[agent]

	return ok
}

// Run routes message. A message for an interrupted session continues that session's
// conversation instead, with the reply kind its pending step expects. When that
// session's thread turns out to be finished, message starts a new conversation.
// Requests on one session id are handled one at a time.
func (r *Router) Run(ctx context.Context, message, sessionID string) (resp Response, err error) {
	if strings.TrimSpace(message) == "" {
		return Response{}, services.NewValidationError("route", "empty_message", "message is required", services.ErrEmptyMessage)
	}

	if sessionID != "" {
		unlock := r.sessions.Lock(sessionID)
		defer unlock()

		existing, err := r.registry.Lookup(ctx, sessionID)

		switch {
		case err == nil && existing.Status == models.SessionInterrupted:
			r.logger.InfoContext(ctx, "Continuing interrupted session", "session_id", sessionID, "agent", existing.AgentType)

			resp, err := r.resume(ctx, existing, message, pendingReplyKind(existing))
			if !errors.Is(err, services.ErrNoPendingSuspension) {
				return resp, err
			}

			r.logger.WarnContext(ctx, "Interrupted session has no pending step, starting over", "session_id", sessionID)
		case err != nil && !persistence.IsSessionNotFound(err):
			return Response{}, err
		}
	} else {
		sessionID = uuid.NewString()
	}

	decision := r.classify(ctx, message)
	r.metrics.RecordRoute(decision.Agent, decision.Method)

	r.logger.InfoContext(ctx, "Request routed",
		"session_id", sessionID,
		"agent", decision.Agent,
		"method", decision.Method,
		"confidence", decision.Confidence,
	)

	if decision.IsFallback() && decision.Keyword.Score() == 0 {
		return Response{
			Success:   true,
			SessionID: sessionID,
			Response:  HelpMessage(r.Agents()),
			Decision:  &decision,
		}, nil
	}

	resp, err = r.dispatch(ctx, decision.Agent, sessionID, message)
	resp.Decision = &decision

	return resp, err
}

// Resume continues the interrupted conversation behind sessionID with reply.
func (r *Router) Resume(ctx context.Context, sessionID, reply string, kind workflow.ReplyKind) (Response, error) {
	if !kind.IsValid() {
		return Response{}, services.NewValidationError("resume", "invalid_reply_kind",
			fmt.Sprintf("reply_type must be %q or %q", workflow.ReplyUser, workflow.ReplyVerification), services.ErrInvalidReplyKind)
	}

	unlock := r.sessions.Lock(sessionID)
	defer unlock()

	existing, err := r.registry.Lookup(ctx, sessionID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return Response{SessionID: sessionID, Error: services.ErrSessionNotFound.Error()},
				&services.ServiceError{Op: "resume", Code: "session_not_found", Err: services.ErrSessionNotFound}
		}

		return Response{}, err
	}

	return r.resume(ctx, existing, reply, kind)
}

// resume and runDocument run with the session's lock held, so the session record
// follows its thread's outcomes in order.
func (r *Router) resume(ctx context.Context, existing *models.Session, reply string, kind workflow.ReplyKind) (Response, error) {
	if existing.AgentType != DocsAgent || r.documents == nil {
		return Response{SessionID: existing.ID, Agent: existing.AgentType, Error: unsupportedInterruptMessage(existing.AgentType)},
			&services.ServiceError{Op: "resume", Code: "unsupported_agent", Err: services.ErrUnsupportedAgent}
	}

	result, err := r.documents.Resume(services.WithSessionID(ctx, existing.ID), existing.ThreadID, reply, kind)
	if err != nil {
		return Response{SessionID: existing.ID, Agent: DocsAgent, Error: err.Error()}, err
	}

	r.track(ctx, existing.ID, result)

	return documentResponse(existing.ID, result), nil
}

// GetSessionStatus reports whether sessionID exists and whether it can still take replies.
func (r *Router) GetSessionStatus(ctx context.Context, sessionID string) (Status, error) {
	existing, err := r.registry.Lookup(ctx, sessionID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return Status{SessionID: sessionID, Message: services.ErrSessionNotFound.Error()}, nil
		}

		return Status{}, err
	}

	status := statusInactive
	if existing.Status.IsOpen() {
		status = statusActive
	}

	return Status{
		Exists:    true,
		SessionID: existing.ID,
		Agent:     existing.AgentType,
		ThreadID:  existing.ThreadID,
		Status:    status,
	}, nil
}

func (r *Router) classify(ctx context.Context, message string) Decision {
	keyword := ClassifyKeywords(message)

	var llm oracle.AgentClassification

	if r.classifier != nil {
		descriptors := make([]oracle.AgentDescriptor, 0, len(r.handlers)+1)

		for _, agent := range r.Agents() {
			if agent.Available {
				descriptors = append(descriptors, oracle.AgentDescriptor{
					Name:        agent.Name,
					Description: agent.Description,
					Examples:    agent.Examples,
				})
			}
		}

		classified, err := r.classifier.ClassifyAgent(ctx, message, descriptors)
		if err != nil {
			r.logger.WarnContext(ctx, "Agent classification failed, using keywords only", "error", err)
		} else {
			llm = classified
		}
	}

	return Combine(keyword, llm)
}

func (r *Router) dispatch(ctx context.Context, agent, sessionID, message string) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "Agent panicked", "agent", agent, "session_id", sessionID, "panic", p)
			resp = Response{SessionID: sessionID, Agent: agent, Error: fmt.Sprintf("%v: %v", services.ErrInternal, p)}
			err = nil
		}
	}()

	if agent == DocsAgent && r.documents != nil {
		return r.runDocument(ctx, sessionID, message)
	}

	handler, ok := r.handlers[agent]
	if !ok {
		return Response{SessionID: sessionID, Agent: agent, Error: notImplementedMessage(agent)}, nil
	}

	reply, err := handler.Handle(ctx, sessionID, message)
	if err != nil {
		return Response{SessionID: sessionID, Agent: agent, Error: err.Error()}, nil
	}

	return Response{
		Success:   true,
		SessionID: sessionID,
		Agent:     agent,
		Response:  reply.Text,
		Data:      reply.Data,
	}, nil
}

func (r *Router) runDocument(ctx context.Context, sessionID, message string) (Response, error) {
	created, err := r.registry.CreateSession(ctx, DocsAgent, sessionID)
	if err != nil {
		return Response{SessionID: sessionID, Agent: DocsAgent, Error: err.Error()}, err
	}

	result, err := r.documents.Run(services.WithSessionID(ctx, created.ID), created.ThreadID, message)
	if err != nil {
		return Response{SessionID: created.ID, Agent: DocsAgent, Error: err.Error()}, err
	}

	r.track(ctx, created.ID, result)

	return documentResponse(created.ID, result), nil
}

// track mirrors a workflow result onto the session: interrupted while waiting,
// completed after any orderly end, error after a failure.
func (r *Router) track(ctx context.Context, sessionID string, result models.WorkflowResult) {
	var (
		status models.SessionStatus
		info   *models.InterruptInfo
	)

	switch {
	case result.Interrupted:
		status = models.SessionInterrupted
		info = &models.InterruptInfo{
			ThreadID:     result.ThreadID,
			NextNode:     result.NextNode,
			DocumentType: result.DocumentType,
			StateInfo:    result.StateInfo,
			Prompt:       result.Prompt,
		}
	case result.Success, result.Violation != "", result.Aborted:
		status = models.SessionCompleted
	default:
		status = models.SessionError
	}

	if err := r.registry.UpdateStatus(ctx, sessionID, status, info); err != nil {
		r.logger.WarnContext(ctx, "Failed to update session status", "session_id", sessionID, "status", status, "error", err)
	}
}

func documentResponse(sessionID string, result models.WorkflowResult) Response {
	return Response{
		Success:           result.Success,
		SessionID:         sessionID,
		Agent:             DocsAgent,
		RequiresInterrupt: result.Interrupted,
		Result:            &result,
		Error:             result.Error,
	}
}

// pendingReplyKind picks the reply kind the session's pending step consumes.
func pendingReplyKind(s *models.Session) workflow.ReplyKind {
	if s.InterruptInfo == nil {
		return workflow.ReplyUser
	}

	node, err := workflow.ParseNodeID(s.InterruptInfo.NextNode)
	if err != nil {
		return workflow.ReplyUser
	}

	return node.ReplyKind()
}
