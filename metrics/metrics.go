// Package metrics exposes prometheus/client_golang counters and
// histograms for FSM transitions, migrations, and saga executions,
// following the namespace/subsystem taxonomy and promauto construction
// style used throughout the retrieved corpus's metrics packages
// (e.g. alert_history_business_<subsystem>_<name>).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Recorder holds every metric grainfsm emits. Construct one per
// process with New and wire it into Machine.OnTransitioned, a
// saga.EventSink, and migrate.Controller callers.
type Recorder struct {
	namespace string

	TransitionsTotal   *prometheus.CounterVec
	MigrationsTotal    *prometheus.CounterVec
	MigrationsDuration *prometheus.HistogramVec
	SagaStepsTotal     *prometheus.CounterVec
	SagaStatusTotal    *prometheus.CounterVec
}

// New registers every metric under namespace (typically "grainfsm")
// against registry. Callers own the registry's lifetime; pass
// prometheus.NewRegistry() in tests to avoid collisions between
// independent Recorders.
func New(namespace string, registry *prometheus.Registry) *Recorder {
	factory := promauto.With(registry)

	return &Recorder{
		namespace: namespace,

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fsm",
				Name:      "transitions_total",
				Help:      "Total number of successful Fire transitions.",
			},
			[]string{"entity_type", "trigger"},
		),

		MigrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "migration",
				Name:      "attempts_total",
				Help:      "Total migration attempts by outcome.",
			},
			[]string{"entity_type", "strategy", "outcome"},
		),

		MigrationsDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "migration",
				Name:      "duration_seconds",
				Help:      "Migration attempt duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity_type", "strategy"},
		),

		SagaStepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "saga",
				Name:      "steps_total",
				Help:      "Total saga step executions by outcome.",
			},
			[]string{"step_name", "outcome"},
		),

		SagaStatusTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "saga",
				Name:      "status_changes_total",
				Help:      "Total saga status changes by resulting status.",
			},
			[]string{"status"},
		),
	}
}

// RecordTransition increments TransitionsTotal for one Fire call.
// Wire this via Machine.OnTransitioned.
func (r *Recorder) RecordTransition(entityType string, trigger fsmtype.TriggerSymbol) {
	r.TransitionsTotal.WithLabelValues(entityType, trigger.Name).Inc()
}

// RecordMigration records one migration attempt's outcome and duration.
func (r *Recorder) RecordMigration(entityType, strategy string, outcome fsmtype.MigrationOutcome, duration time.Duration) {
	r.MigrationsTotal.WithLabelValues(entityType, strategy, string(outcome)).Inc()
	r.MigrationsDuration.WithLabelValues(entityType, strategy).Observe(duration.Seconds())
}

// SagaEventSink returns a func(fsmtype.SagaEvent), the underlying type
// of saga.EventSink, so it can be passed to saga.WithEventSink without
// this package importing saga. It records step and status-change
// counters as a side effect of saga execution.
func (r *Recorder) SagaEventSink() func(fsmtype.SagaEvent) {
	return func(evt fsmtype.SagaEvent) {
		switch evt.Kind {
		case fsmtype.SagaEventStepEnd:
			r.SagaStepsTotal.WithLabelValues(evt.StepName, evt.Outcome).Inc()
		case fsmtype.SagaEventStatusChange:
			r.SagaStatusTotal.WithLabelValues(evt.Status).Inc()
		}
	}
}
