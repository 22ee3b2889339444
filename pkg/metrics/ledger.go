package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
)

// LedgerMetrics records token trades and payment reconciliation outcomes.
type LedgerMetrics struct {
	operations     *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger operations by operation and outcome.",
	}, []string{"op", "outcome"})
	reconciliation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_total",
		Help: "Payment return reconciliations by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(operations, reconciliation, duration)
	return &LedgerMetrics{
		operations:     operations,
		reconciliation: reconciliation,
		duration:       duration,
	}
}

// ObserveOperation counts one ledger operation and records its duration.
func (l *LedgerMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if l == nil || l.operations == nil {
		return
	}
	op = normalizeLabel(op)
	l.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	if l.duration != nil {
		l.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

// IncReconciliation counts one reconciliation attempt.
func (l *LedgerMetrics) IncReconciliation(outcome string) {
	if l == nil || l.reconciliation == nil {
		return
	}
	l.reconciliation.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
