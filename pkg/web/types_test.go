package web_test

import (
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/web"
	"github.com/dukex/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentResponse(result models.WorkflowResult) router.Response {
	return router.Response{
		Success:           result.Success,
		SessionID:         "s-1",
		Agent:             router.DocsAgent,
		RequiresInterrupt: result.Interrupted,
		Result:            &result,
		Error:             result.Error,
	}
}

func TestResumeRequest_Kind(t *testing.T) {
	assert.Equal(t, workflow.ReplyUser, web.ResumeRequest{UserReply: "네"}.Kind())
	assert.Equal(t, workflow.ReplyVerification, web.ResumeRequest{UserReply: "네", ReplyType: "verification_reply"}.Kind())
}

func TestManualOptions(t *testing.T) {
	assert.Equal(t, []web.Option{
		{Value: "1", Label: "영업방문 결과보고서"},
		{Value: "2", Label: "제품설명회 시행 신청서"},
		{Value: "3", Label: "제품설명회 시행 결과보고서"},
		{Value: "4", Label: "종료"},
	}, web.ManualOptions())
}

func TestTransformChatResponse_Success(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	resp := documentResponse(models.WorkflowResult{
		Success:      true,
		DocumentType: models.SalesVisitReport,
		ArtifactPath: "/out/영업방문결과보고서_20250701.docx",
		FilledFields: map[string]string{"방문제목": "신제품 소개"},
	})
	resp.Decision = &router.Decision{Agent: router.DocsAgent, Confidence: 0.9}

	out := web.TransformChatResponse(resp, now)

	assert.True(t, out.Success)
	assert.Equal(t, "docs_agent", out.TargetAgent)
	assert.Equal(t, "문서가 성공적으로 생성되었습니다.", out.Response)
	assert.Equal(t, "/out/영업방문결과보고서_20250701.docx", out.Data["document_path"])
	assert.Equal(t, models.SalesVisitReport, out.Data["document_type"])
	assert.Equal(t, now, out.Metadata["timestamp"])
	assert.InDelta(t, 0.9, out.Metadata["classification_confidence"], 1e-9)
}

func TestTransformResumeResponse(t *testing.T) {
	tests := []struct {
		name      string
		result    models.WorkflowResult
		response  string
		errorType string
	}{
		{
			name:      "policy violation",
			result:    models.WorkflowResult{Violation: "자사 판촉물 전달: 규정 위반", Violations: []models.Violation{{Phrase: "자사 판촉물 전달", Detail: "규정 위반"}}},
			response:  "규정 위반으로 문서 생성이 중단되었습니다.",
			errorType: "policy_violation",
		},
		{
			name:      "processing error",
			result:    models.WorkflowResult{Error: "document not generated"},
			response:  "오류 발생: document not generated",
			errorType: "processing_error",
		},
		{
			name:      "aborted",
			result:    models.WorkflowResult{Aborted: true},
			response:  "문서 생성이 중단되었습니다.",
			errorType: "aborted",
		},
		{
			name:      "nothing produced",
			result:    models.WorkflowResult{},
			response:  "문서 생성 실패: 결과가 없습니다.",
			errorType: "processing_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := web.TransformResumeResponse(documentResponse(tt.result))

			assert.False(t, out.Success)
			assert.False(t, out.RequiresInterrupt)
			assert.Equal(t, tt.response, out.Response)
			assert.Equal(t, tt.errorType, out.Data["error_type"])
			assert.Nil(t, out.Metadata)
		})
	}
}

func TestTransformResumeResponse_ViolationLines(t *testing.T) {
	out := web.TransformResumeResponse(documentResponse(models.WorkflowResult{
		Violation:  "자사 판촉물 전달: 규정 위반",
		Violations: []models.Violation{{Phrase: "자사 판촉물 전달", Detail: "규정 위반"}},
	}))

	assert.Equal(t, []string{"'자사 판촉물 전달' - 규정 위반"}, out.Data["violations"])
}

func TestTransformResumeResponse_Interrupts(t *testing.T) {
	tests := []struct {
		node     string
		response string
		check    func(t *testing.T, data map[string]any)
	}{
		{
			node:     "receive_verification_input",
			response: "분류된 문서 타입: 제품설명회 시행 신청서\n\n위 분류 결과가 올바른가요?",
			check: func(t *testing.T, data map[string]any) {
				t.Helper()
				assert.Equal(t, "verification", data["prompt_type"])
			},
		},
		{
			node:     "receive_manual_doc_type_input",
			response: "문서 타입을 선택해주세요.",
			check: func(t *testing.T, data map[string]any) {
				t.Helper()
				assert.Equal(t, "manual_doc_selection", data["prompt_type"])
				assert.Equal(t, web.ManualOptions(), data["options"])
				assert.Contains(t, data["message"], "번호(1-4)")
			},
		},
		{
			node:     "receive_user_input",
			response: "필요한 정보를 입력해주세요.",
			check: func(t *testing.T, data map[string]any) {
				t.Helper()
				assert.Equal(t, "data_input", data["interrupt_type"])
			},
		},
		{
			node:     "",
			response: "추가 질문",
			check: func(t *testing.T, data map[string]any) {
				t.Helper()
				assert.Equal(t, "verification", data["interrupt_type"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			out := web.TransformResumeResponse(documentResponse(models.WorkflowResult{
				Interrupted:  true,
				ThreadID:     "thread-1",
				NextNode:     tt.node,
				DocumentType: models.ProductBriefingApplication,
				Prompt:       "추가 질문",
			}))

			require.True(t, out.RequiresInterrupt)
			assert.Equal(t, tt.response, out.Response)
			assert.Equal(t, "thread-1", out.Data["thread_id"])
			tt.check(t, out.Data)
		})
	}
}

func TestTransformChatResponse_AgentReply(t *testing.T) {
	out := web.TransformChatResponse(router.Response{
		Success:   true,
		SessionID: "s-2",
		Agent:     router.SearchAgent,
		Response:  "검색 결과",
		Data:      map[string]any{"hits": 3},
	}, time.Now())

	assert.Equal(t, "검색 결과", out.Response)
	assert.Equal(t, 3, out.Data["hits"])
	assert.NotContains(t, out.Metadata, "classification_confidence")
}
