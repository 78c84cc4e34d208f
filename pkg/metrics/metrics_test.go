package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordOutcome("run", "suspended", 200*time.Millisecond)
	m.RecordOutcome("resume", "completed", time.Second)
	m.RecordOutcome("resume", "completed", time.Second)
	m.RecordSuspension("receive_verification_input")
	m.RecordRoute("docs_agent", "combined")
	m.RecordCleanup(3, 2)
	m.RecordEvent("document.workflow.started")

	assert.InDelta(t, 2, testutil.ToFloat64(m.workflowOutcomes.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.workflowSuspensions.WithLabelValues("receive_verification_input")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.routedRequests.WithLabelValues("docs_agent", "combined")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.sessionsCleaned), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.snapshotsCleaned), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.workflowDuration))
	assert.InDelta(t, 1, testutil.ToFloat64(m.eventsConsumed.WithLabelValues("document.workflow.started")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordOutcome("run", "failed", time.Second)
		m.RecordSuspension("receive_user_input")
		m.RecordRoute("search_agent", "fallback")
		m.RecordCleanup(1, 1)
		m.RecordEvent("session.cleanup.completed")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordRoute("docs_agent", "keyword")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `docflow_router_requests_total{agent="docs_agent",method="keyword"} 1`)
}
