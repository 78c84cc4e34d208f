package models

import "time"

type SessionStatus string

const (
	SessionActive      SessionStatus = "active"
	SessionInterrupted SessionStatus = "interrupted"
	SessionCompleted   SessionStatus = "completed"
	SessionError       SessionStatus = "error"
)

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionActive, SessionInterrupted, SessionCompleted, SessionError:
		return true
	default:
		return false
	}
}

// IsOpen reports whether a session can still receive replies.
func (s SessionStatus) IsOpen() bool {
	return s == SessionActive || s == SessionInterrupted
}

// InterruptInfo describes what a suspended conversation is waiting for.
type InterruptInfo struct {
	ThreadID     string         `json:"thread_id"`
	NextNode     string         `json:"next_node"`
	DocumentType DocumentType   `json:"doc_type,omitempty"`
	StateInfo    map[string]any `json:"state_info,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
}

// Session binds an externally visible session id to the handler and thread serving it.
type Session struct {
	ID            string         `json:"session_id"`
	ThreadID      string         `json:"thread_id"`
	AgentType     string         `json:"agent_type"`
	Status        SessionStatus  `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	LastUpdated   time.Time      `json:"last_updated"`
	InterruptInfo *InterruptInfo `json:"interrupt_info"`
}

// Snapshot is the persisted form of a suspended workflow thread.
type Snapshot struct {
	ThreadID  string        `json:"thread_id"`
	NextNode  string        `json:"next_node"`
	State     WorkflowState `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
