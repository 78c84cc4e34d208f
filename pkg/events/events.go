// Package events defines the lifecycle notifications emitted while documents are produced.
package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/docflow/pkg/models"
)

type EventType string

// Topic carries every docflow lifecycle event.
const Topic = "docflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Document workflow lifecycle events.
	WorkflowStartedEvent   EventType = "document.workflow.started"
	WorkflowSuspendedEvent EventType = "document.workflow.suspended"
	WorkflowResumedEvent   EventType = "document.workflow.resumed"
	WorkflowCompletedEvent EventType = "document.workflow.completed"
	WorkflowViolationEvent EventType = "document.workflow.violation"
	WorkflowAbortedEvent   EventType = "document.workflow.aborted"
	WorkflowFailedEvent    EventType = "document.workflow.failed"

	// Session housekeeping events.
	SessionCleanupCompletedEvent EventType = "session.cleanup.completed"
)

// AllEventTypes lists every event docflow publishes.
func AllEventTypes() []EventType {
	return []EventType{
		WorkflowStartedEvent,
		WorkflowSuspendedEvent,
		WorkflowResumedEvent,
		WorkflowCompletedEvent,
		WorkflowViolationEvent,
		WorkflowAbortedEvent,
		WorkflowFailedEvent,
		SessionCleanupCompletedEvent,
	}
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ThreadID  string         `json:"thread_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type WorkflowStarted struct {
	BaseEvent

	Agent string `json:"agent"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowSuspended struct {
	BaseEvent

	NextNode     string              `json:"next_node"`
	DocumentType models.DocumentType `json:"doc_type,omitempty"`
}

func (w WorkflowSuspended) GetType() EventType {
	return WorkflowSuspendedEvent
}

type WorkflowResumed struct {
	BaseEvent

	FromNode  string `json:"from_node"`
	ReplyKind string `json:"reply_kind"`
}

func (w WorkflowResumed) GetType() EventType {
	return WorkflowResumedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	DocumentType models.DocumentType `json:"doc_type"`
	DocumentPath string              `json:"document_path"`
	FieldCount   int                 `json:"field_count"`
	UsedFallback bool                `json:"used_fallback,omitempty"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

// WorkflowViolation is emitted when the policy check blocks a document.
type WorkflowViolation struct {
	BaseEvent

	DocumentType models.DocumentType `json:"doc_type,omitempty"`
	Report       string              `json:"report"`
	Violations   []models.Violation  `json:"violations"`
}

func (w WorkflowViolation) GetType() EventType {
	return WorkflowViolationEvent
}

type WorkflowAborted struct {
	BaseEvent
}

func (w WorkflowAborted) GetType() EventType {
	return WorkflowAbortedEvent
}

type WorkflowFailed struct {
	BaseEvent

	DocumentType models.DocumentType `json:"doc_type,omitempty"`
	Error        string              `json:"error"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type SessionCleanupCompleted struct {
	BaseEvent

	RetentionDays    int `json:"retention_days"`
	SessionsDeleted  int `json:"sessions_deleted"`
	SnapshotsDeleted int `json:"snapshots_deleted"`
}

func (s SessionCleanupCompleted) GetType() EventType {
	return SessionCleanupCompletedEvent
}

// Envelope returns the fields shared by every event.
func (b BaseEvent) Envelope() BaseEvent {
	return b
}

func NewBaseEvent(eventType EventType, threadID string) BaseEvent {
	return BaseEvent{
		ID:        watermill.NewULID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ThreadID:  threadID,
		Metadata:  make(map[string]any),
	}
}
