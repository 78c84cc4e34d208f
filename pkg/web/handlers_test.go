package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/docflow/pkg/interrupt"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle/rules"
	"github.com/dukex/docflow/pkg/persistence/memory"
	"github.com/dukex/docflow/pkg/render"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/session"
	"github.com/dukex/docflow/pkg/templates"
	"github.com/dukex/docflow/pkg/web"
	"github.com/dukex/docflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *router.Router) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	templateDir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(templateDir, render.TemplateBaseName(models.SalesVisitReport)+".txt"),
		[]byte("제목: 방문제목항목내용\n"),
		0600,
	))

	store := memory.NewPersistence()
	catalog := templates.Load(logger, "")

	engine, err := workflow.NewEngine(logger, rules.New().Set(), catalog, render.NewRenderer(logger, templateDir, t.TempDir()))
	require.NoError(t, err)

	registry := session.NewRegistry(logger, store.Sessions())
	documents := services.NewDocument(logger, interrupt.NewController(logger, engine, store.Snapshots()))
	r := router.New(logger, registry, documents)

	handlers := web.NewAPIHandlers(r, registry, catalog, services.NewHealth(store), validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	v1 := app.Group("/v1")
	v1.Post("/chat", handlers.Chat)
	v1.Post("/resume/:session_id", handlers.Resume)
	v1.Get("/status/:session_id", handlers.GetSessionStatus)
	v1.Get("/health", handlers.HealthCheck)
	v1.Get("/agents", handlers.GetAgents)
	v1.Get("/sessions", handlers.ListSessions)
	v1.Delete("/sessions/:session_id", handlers.DeleteSession)
	v1.Get("/templates", handlers.GetTemplates)

	return app, r
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}

	return resp.StatusCode, decoded
}

func TestAPIHandlers_ChatValidation(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing message", body: web.ChatRequest{SessionID: "s-1"}},
		{name: "not an object", body: "영업방문"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodPost, "/v1/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "validation_error", body["type"])
		})
	}
}

func TestAPIHandlers_ChatHelpMessage(t *testing.T) {
	t.Parallel()

	app, r := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/v1/chat", web.ChatRequest{Message: "안녕하세요"})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["requires_interrupt"])
	assert.Equal(t, router.HelpMessage(r.Agents()), body["response"])
	assert.NotEmpty(t, body["session_id"])

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, metadata, "timestamp")
	assert.InDelta(t, 0.3, metadata["classification_confidence"], 1e-9)
}

func TestAPIHandlers_DocumentConversation(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/v1/chat", web.ChatRequest{
		Message:   "영업방문 결과보고서 작성해줘",
		SessionID: "web-1",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "docs_agent", body["target_agent"])
	assert.Equal(t, true, body["requires_interrupt"])
	assert.Equal(t, "분류된 문서 타입: 영업방문 결과보고서\n\n위 분류 결과가 올바른가요?", body["response"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "receive_verification_input", data["next_node"])
	assert.Equal(t, "verification", data["prompt_type"])
	assert.Equal(t, "verification", data["interrupt_type"])
	assert.Equal(t, "영업방문 결과보고서", data["doc_type"])

	status, body = doRequest(t, app, http.MethodPost, "/v1/resume/web-1", web.ResumeRequest{
		UserReply: "네 맞습니다",
		ReplyType: "verification_reply",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, true, body["requires_interrupt"])
	assert.Equal(t, "필요한 정보를 입력해주세요.", body["response"])

	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "data_input", data["interrupt_type"])

	status, body = doRequest(t, app, http.MethodGet, "/v1/status/web-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "active", body["status"])

	status, body = doRequest(t, app, http.MethodPost, "/v1/resume/web-1", web.ResumeRequest{
		UserReply: "방문제목: 신제품 소개",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, true, body["success"], body["error"])
	assert.Equal(t, false, body["requires_interrupt"])
	assert.Equal(t, "처리가 완료되었습니다.", body["response"])

	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["final_doc"])

	filled, ok := data["filled_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "신제품 소개", filled["방문제목"])

	status, body = doRequest(t, app, http.MethodPost, "/v1/resume/web-1", web.ResumeRequest{UserReply: "한 번 더"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body["type"])

	status, body = doRequest(t, app, http.MethodGet, "/v1/status/web-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inactive", body["status"])
}

func TestAPIHandlers_ManualSelectionExit(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/v1/chat", web.ChatRequest{
		Message:   "문서 작성해줘",
		SessionID: "web-exit",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "문서 타입을 선택해주세요.", body["response"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "manual_doc_selection", data["prompt_type"])
	assert.Len(t, data["options"], 4)

	status, body = doRequest(t, app, http.MethodPost, "/v1/resume/web-exit", web.ResumeRequest{
		UserReply: "4",
		ReplyType: "verification_reply",
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, false, body["success"])
	assert.Equal(t, false, body["requires_interrupt"])
	assert.Equal(t, "문서 생성이 중단되었습니다.", body["response"])

	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aborted", data["error_type"])
}

func TestAPIHandlers_ResumeErrors(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "unknown session",
			path:           "/v1/resume/missing",
			body:           web.ResumeRequest{UserReply: "네"},
			expectedStatus: http.StatusNotFound,
			expectedType:   "session_not_found",
		},
		{
			name:           "missing reply",
			path:           "/v1/resume/missing",
			body:           web.ResumeRequest{ReplyType: "user_reply"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "unknown reply type",
			path:           "/v1/resume/missing",
			body:           web.ResumeRequest{UserReply: "네", ReplyType: "shout"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedType, body["type"])
		})
	}
}

func TestAPIHandlers_UnknownSessionStatus(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/v1/status/nobody", nil)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, false, body["exists"])
	assert.Equal(t, "세션을 찾을 수 없습니다.", body["message"])
}

func TestAPIHandlers_Sessions(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	for _, id := range []string{"list-1", "list-2"} {
		status, _ := doRequest(t, app, http.MethodPost, "/v1/chat", web.ChatRequest{
			Message:   "영업방문 결과보고서 작성해줘",
			SessionID: id,
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := doRequest(t, app, http.MethodGet, "/v1/sessions?agent=docs_agent&status=interrupted", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total_count"])

	status, body = doRequest(t, app, http.MethodGet, "/v1/sessions?status=completed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["total_count"])

	status, _ = doRequest(t, app, http.MethodGet, "/v1/sessions?status=sleeping", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/v1/sessions/list-1", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodDelete, "/v1/sessions/list-1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["type"])

	status, body = doRequest(t, app, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_count"])
}

func TestAPIHandlers_Agents(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/v1/agents", nil)
	require.Equal(t, http.StatusOK, status)

	agents, ok := body["agents"].([]any)
	require.True(t, ok)
	require.Len(t, agents, 4)

	docs, ok := agents[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "docs_agent", docs["id"])
	assert.Equal(t, true, docs["available"])

	employee, ok := agents[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, employee["available"])
}

func TestAPIHandlers_Templates(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, status)

	items, ok := body["templates"].([]any)
	require.True(t, ok)
	assert.Len(t, items, len(models.DocumentTypes))
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "docflow", body["service"])
	assert.Equal(t, "1.0.0", body["version"])

	checkers, ok := body["checkers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", checkers["persistence"])
}
