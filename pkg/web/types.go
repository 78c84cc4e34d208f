// Package web provides HTTP request and response types for the document chat API.
package web

import (
	"fmt"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/workflow"
)

const (
	messageDocumentCreated  = "문서가 성공적으로 생성되었습니다."
	messageResumeCompleted  = "처리가 완료되었습니다."
	messageMoreInput        = "추가 정보가 필요합니다."
	messageSelectType       = "문서 타입을 선택해주세요."
	messageSelectTypeDetail = "올바른 문서 타입을 선택해주세요. 번호(1-4) 또는 문서명을 직접 입력할 수 있습니다."
	messageEnterFields      = "필요한 정보를 입력해주세요."
	messageViolation        = "규정 위반으로 문서 생성이 중단되었습니다."
	messageAborted          = "문서 생성이 중단되었습니다."
	messageNoResult         = "문서 생성 실패: 결과가 없습니다."

	promptVerification = "verification"
	promptManual       = "manual_doc_selection"
	interruptDataInput = "data_input"

	errorTypeViolation  = "policy_violation"
	errorTypeProcessing = "processing_error"
	errorTypeAborted    = "aborted"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message   string `json:"message"              validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// ResumeRequest is the body of POST /v1/resume/:session_id.
// ReplyType defaults to user_reply.
type ResumeRequest struct {
	UserReply string `json:"user_reply"           validate:"required"`
	ReplyType string `json:"reply_type,omitempty" validate:"omitempty,oneof=user_reply verification_reply"`
}

// Kind returns the reply kind the request asks for.
func (r ResumeRequest) Kind() workflow.ReplyKind {
	if r.ReplyType == "" {
		return workflow.ReplyUser
	}

	return workflow.ReplyKind(r.ReplyType)
}

// ChatResponse is returned by both chat and resume.
type ChatResponse struct {
	Success           bool           `json:"success"`
	SessionID         string         `json:"session_id"`
	TargetAgent       string         `json:"target_agent,omitempty"`
	RequiresInterrupt bool           `json:"requires_interrupt"`
	Response          string         `json:"response,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	Error             string         `json:"error,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Option is one entry of the manual document type menu.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ManualOptions lists the document types by menu number, followed by the exit entry.
func ManualOptions() []Option {
	options := make([]Option, 0, len(models.DocumentTypes)+1)
	for i, t := range models.DocumentTypes {
		options = append(options, Option{Value: fmt.Sprint(i + 1), Label: t.String()})
	}

	return append(options, Option{Value: fmt.Sprint(len(models.DocumentTypes) + 1), Label: "종료"})
}

// TemplateResponse describes one catalog entry.
type TemplateResponse struct {
	DocumentType models.DocumentType `json:"doc_type"`
	Fields       []string            `json:"fields"`
	InputPrompt  string              `json:"input_prompt,omitempty"`
	HasSchema    bool                `json:"has_schema"`
}

// TransformChatResponse shapes a routed chat result for clients.
func TransformChatResponse(resp router.Response, now time.Time) ChatResponse {
	out := baseResponse(resp)

	out.Metadata = map[string]any{"timestamp": now.UTC()}
	if resp.Decision != nil {
		out.Metadata["classification_confidence"] = resp.Decision.Confidence
	}

	if resp.Result == nil {
		return out
	}

	result := *resp.Result

	switch {
	case result.Interrupted:
		out.Response, out.Data = interruptResponse(result)
	case result.Success:
		out.Response = messageDocumentCreated
		out.Data = map[string]any{
			"document_path": result.ArtifactPath,
			"document_type": result.DocumentType,
			"filled_data":   result.FilledFields,
		}
	default:
		out.Response, out.Data = failureResponse(result)
	}

	return out
}

// TransformResumeResponse shapes the result of a resumed conversation.
func TransformResumeResponse(resp router.Response) ChatResponse {
	out := baseResponse(resp)

	if resp.Result == nil {
		return out
	}

	result := *resp.Result

	switch {
	case result.Interrupted:
		out.Response, out.Data = interruptResponse(result)
	case result.Success:
		out.Response = messageResumeCompleted
		out.Data = map[string]any{
			"final_doc":   result.ArtifactPath,
			"filled_data": result.FilledFields,
		}
	default:
		out.Response, out.Data = failureResponse(result)
	}

	return out
}

func baseResponse(resp router.Response) ChatResponse {
	return ChatResponse{
		Success:           resp.Success,
		SessionID:         resp.SessionID,
		TargetAgent:       resp.Agent,
		RequiresInterrupt: resp.RequiresInterrupt,
		Response:          resp.Response,
		Data:              resp.Data,
		Error:             resp.Error,
	}
}

// interruptResponse names what the suspended step waits for and the affordances a client can offer.
func interruptResponse(result models.WorkflowResult) (string, map[string]any) {
	data := map[string]any{
		"thread_id":  result.ThreadID,
		"next_node":  result.NextNode,
		"doc_type":   result.DocumentType,
		"state_info": result.StateInfo,
		"prompt":     result.Prompt,
	}

	node, err := workflow.ParseNodeID(result.NextNode)
	if err != nil {
		data["interrupt_type"] = promptVerification

		if result.Prompt != "" {
			return result.Prompt, data
		}

		return messageMoreInput, data
	}

	switch node {
	case workflow.NodeReceiveVerificationInput:
		data["interrupt_type"] = promptVerification
		data["prompt_type"] = promptVerification

		return fmt.Sprintf("분류된 문서 타입: %s\n\n위 분류 결과가 올바른가요?", result.DocumentType), data
	case workflow.NodeReceiveManualDocTypeInput:
		data["prompt_type"] = promptManual
		data["options"] = ManualOptions()
		data["message"] = messageSelectTypeDetail

		return messageSelectType, data
	case workflow.NodeReceiveUserInput:
		data["interrupt_type"] = interruptDataInput

		return messageEnterFields, data
	default:
		return messageMoreInput, data
	}
}

func failureResponse(result models.WorkflowResult) (string, map[string]any) {
	data := map[string]any{
		"error_type": errorTypeProcessing,
		"violation":  result.Violation,
		"violations": violationLines(result.Violations),
		"details":    result.Error,
	}

	switch {
	case result.Error != "":
		return "오류 발생: " + result.Error, data
	case result.Violation != "":
		data["error_type"] = errorTypeViolation

		return messageViolation, data
	case result.Aborted:
		data["error_type"] = errorTypeAborted

		return messageAborted, data
	default:
		return messageNoResult, data
	}
}

func violationLines(violations []models.Violation) []string {
	lines := make([]string, 0, len(violations))
	for _, v := range violations {
		lines = append(lines, v.String())
	}

	return lines
}
