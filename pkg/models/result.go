package models

import "fmt"

// Violation is one compliance finding extracted from a policy report.
type Violation struct {
	Phrase string `json:"phrase,omitempty"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	if v.Phrase == "" {
		return v.Detail
	}

	return fmt.Sprintf("'%s' - %s", v.Phrase, v.Detail)
}

// WorkflowResult is what a Run or Resume call hands back to its caller. Exactly one of
// three shapes is populated: success with an artifact, interrupted with a suspension
// descriptor, or failure with an error and optional violation details.
type WorkflowResult struct {
	Success     bool `json:"success"`
	Interrupted bool `json:"interrupted,omitempty"`

	ThreadID     string         `json:"thread_id,omitempty"`
	NextNode     string         `json:"next_node,omitempty"`
	DocumentType DocumentType   `json:"doc_type,omitempty"`
	StateInfo    map[string]any `json:"state_info,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`

	ArtifactPath string            `json:"artifact_path,omitempty"`
	FilledFields map[string]string `json:"filled_fields,omitempty"`

	Aborted    bool        `json:"aborted,omitempty"`
	Error      string      `json:"error,omitempty"`
	Violation  string      `json:"violation,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// IsTerminal reports whether the conversation behind r has finished.
func (r WorkflowResult) IsTerminal() bool {
	return !r.Interrupted
}

// FailureResult is a terminal failure carrying only an error message.
func FailureResult(threadID string, err error) WorkflowResult {
	return WorkflowResult{ThreadID: threadID, Error: err.Error()}
}
