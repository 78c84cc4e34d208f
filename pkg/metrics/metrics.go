// Package metrics exposes Prometheus collectors for document workflows, routing and sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docflow"

// Metrics owns its registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	workflowOutcomes    *prometheus.CounterVec
	workflowSuspensions *prometheus.CounterVec
	workflowDuration    *prometheus.HistogramVec
	routedRequests      *prometheus.CounterVec
	sessionsCleaned     prometheus.Counter
	snapshotsCleaned    prometheus.Counter
	eventsConsumed      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		workflowOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_outcomes_total",
				Help:      "Workflow run segments by how they ended",
			},
			[]string{"outcome"}, // suspended, completed, violation, aborted, failed
		),
		workflowSuspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_suspensions_total",
				Help:      "Workflow suspensions by the node waiting for input",
			},
			[]string{"node"},
		),
		workflowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_segment_duration_seconds",
				Help:      "Duration of one workflow run or resume call in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"}, // run, resume
		),
		routedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "router_requests_total",
				Help:      "Requests routed by target agent",
			},
			[]string{"agent", "method"},
		),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cleaned_total",
			Help:      "Sessions removed by retention cleanup",
		}),
		snapshotsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_cleaned_total",
			Help:      "Workflow snapshots removed by retention cleanup",
		}),
		eventsConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_consumed_total",
				Help:      "Lifecycle events received from the event bus",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		m.workflowOutcomes,
		m.workflowSuspensions,
		m.workflowDuration,
		m.routedRequests,
		m.sessionsCleaned,
		m.snapshotsCleaned,
		m.eventsConsumed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordOutcome(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.workflowOutcomes.WithLabelValues(outcome).Inc()
	m.workflowDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordSuspension(node string) {
	if m == nil {
		return
	}

	m.workflowSuspensions.WithLabelValues(node).Inc()
}

// RecordRoute counts one routed request. Method is llm, keyword, combined or fallback.
func (m *Metrics) RecordRoute(agent, method string) {
	if m == nil {
		return
	}

	m.routedRequests.WithLabelValues(agent, method).Inc()
}

func (m *Metrics) RecordCleanup(sessions, snapshots int) {
	if m == nil {
		return
	}

	m.sessionsCleaned.Add(float64(sessions))
	m.snapshotsCleaned.Add(float64(snapshots))
}

func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}

	m.eventsConsumed.WithLabelValues(eventType).Inc()
}
