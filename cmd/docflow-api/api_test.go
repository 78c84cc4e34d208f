package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	stack, err := cmd.NewStack(context.Background(), slog.Default(), cmd.StackConfig{
		ServiceName: "docflow-api-test",
		DatabaseURL: "file://" + t.TempDir(),
		EventBus:    "gochannel",
		TemplateDir: t.TempDir(),
		OutputDir:   t.TempDir(),
		Oracles:     cmd.OracleConfig{Provider: "rules"},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, stack.Close(context.Background()))
	})

	return NewAPI(slog.Default(), stack).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "docflow API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, body = get(t, app, "/v1/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
}

func TestAPI_ChatIsCountedInMetrics(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"영업방문 결과보고서 작성해줘","session_id":"api-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, body := get(t, app, "/v1/sessions?status=interrupted")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"session_id":"api-1"`)

	status, body = get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `docflow_router_requests_total{agent="docs_agent"`)
	assert.Contains(t, body, `docflow_workflow_suspensions_total{node="receive_verification_input"} 1`)
}

func TestRunAPI_ReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, taken.Close())
	}()

	port := taken.Addr().(*net.TCPAddr).Port

	err = newCommand().Run(context.Background(), []string{
		"docflow-api",
		"--port", strconv.Itoa(port),
		"--database-url", "memory://",
		"--event-bus", "gochannel",
		"--oracle", "rules",
		"--template-dir", t.TempDir(),
		"--output-dir", t.TempDir(),
		"--log-level", "error",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
}
