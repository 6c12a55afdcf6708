package mutation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MutationsTotal counts finished mutations.
	// Labels: kind (task_status, create_project, ...), result (success,
	// failure, unauthorized)
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "mutations_total",
			Help:      "Total number of mutations by kind and result",
		},
		[]string{"kind", "result"},
	)

	// RollbacksTotal counts optimistic edits reverted after a failure.
	RollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "mutation",
			Name:      "rollbacks_total",
			Help:      "Total number of optimistic updates rolled back",
		},
	)

	// QueueWait tracks how long a mutation waited behind earlier ones on
	// the same entity.
	QueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracker",
			Subsystem: "mutation",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for an earlier mutation on the same entity",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Pending is the number of mutations currently in flight.
	Pending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tracker",
			Name:      "mutations_pending",
			Help:      "Number of mutations awaiting a response",
		},
	)
)

const (
	resultSuccess      = "success"
	resultFailure      = "failure"
	resultUnauthorized = "unauthorized"
)
