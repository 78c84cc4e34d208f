package models

import (
	"maps"
	"slices"
	"strings"
)

// VerificationOutcome is the verdict on the user's reply to a classification check.
type VerificationOutcome string

const (
	VerificationUnset    VerificationOutcome = ""
	VerificationAffirmed VerificationOutcome = "긍정"
	VerificationRejected VerificationOutcome = "부정"
	VerificationUnclear  VerificationOutcome = "불명확"
	VerificationError    VerificationOutcome = "오류"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WorkflowState is the full data of one document conversation. Node functions receive
// it by value and return the successor; Clone detaches the reference-typed fields.
type WorkflowState struct {
	Messages []Message `json:"messages"`

	DocumentType   DocumentType      `json:"doc_type,omitempty"`
	TemplatePrompt string            `json:"template_content,omitempty"`
	FilledFields   map[string]string `json:"filled_data,omitempty"`

	ClassificationFailed bool                `json:"classification_failed"`
	SkipVerification     bool                `json:"skip_verification"`
	SkipFieldPrompt      bool                `json:"skip_ask_fields"`
	UserContent          string              `json:"user_content,omitempty"`
	VerificationResult   VerificationOutcome `json:"verification_result,omitempty"`

	UserReply         string `json:"user_reply,omitempty"`
	VerificationReply string `json:"verification_reply,omitempty"`

	ParseRetryCount int  `json:"parse_retry_count"`
	ParseFailed     bool `json:"parse_failed"`
	UsedFallback    bool `json:"used_fallback,omitempty"`

	VerificationAttempts int `json:"verification_attempts,omitempty"`
	SelectionAttempts    int `json:"selection_attempts,omitempty"`

	Violation     string `json:"violation,omitempty"`
	FinalDocument string `json:"final_doc,omitempty"`
	RenderError   string `json:"render_error,omitempty"`
	Error         string `json:"error,omitempty"`

	Terminated bool `json:"end_process"`
	Aborted    bool `json:"aborted,omitempty"`
}

// NewWorkflowState starts a conversation from the user's first request.
func NewWorkflowState(request string) WorkflowState {
	return WorkflowState{
		Messages: []Message{{Role: RoleUser, Content: request}},
	}
}

// Clone returns a deep copy of s.
func (s WorkflowState) Clone() WorkflowState {
	out := s
	out.Messages = slices.Clone(s.Messages)

	if s.FilledFields != nil {
		out.FilledFields = maps.Clone(s.FilledFields)
	}

	return out
}

// WithMessage returns a copy of s with one more history entry.
func (s WorkflowState) WithMessage(role, content string) WorkflowState {
	out := s.Clone()
	out.Messages = append(out.Messages, Message{Role: role, Content: content})

	return out
}

// LatestMessage is the most recent history entry's text, or "" for an empty history.
func (s WorkflowState) LatestMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}

	return s.Messages[len(s.Messages)-1].Content
}

// ActiveContent is the text the policy check and field extraction operate on:
// the separated request body when there is one, otherwise the latest message.
func (s WorkflowState) ActiveContent() string {
	if strings.TrimSpace(s.UserContent) != "" {
		return s.UserContent
	}

	return s.LatestMessage()
}

// StateInfo is the subset of state shown to clients while a conversation is suspended.
func (s WorkflowState) StateInfo() map[string]any {
	return map[string]any{
		"doc_type":              s.DocumentType,
		"classification_failed": s.ClassificationFailed,
		"user_content":          s.UserContent,
		"verification_result":   s.VerificationResult,
		"skip_ask_fields":       s.SkipFieldPrompt,
	}
}
