package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentorhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// WorkflowTransitions counts application and matching state transitions by outcome.
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorhub_workflow_transitions_total",
			Help: "Total number of workflow state transitions",
		},
		[]string{"entity", "transition", "result"},
	)

	// AlarmsEmitted counts alarms persisted by the dispatcher.
	AlarmsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorhub_alarms_emitted_total",
			Help: "Total number of alarms written by the notification dispatcher",
		},
		[]string{"type"},
	)
)
