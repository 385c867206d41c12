package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
// Following the explicit dependency injection pattern, this struct is
// passed to every component that records metrics. A nil *Metrics is valid
// everywhere and records nothing, so tests and the CLI can skip it.
type Metrics struct {
	// Solana RPC metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Submission metrics
	submitAttemptsTotal  *prometheus.CounterVec
	confirmationDuration *prometheus.HistogramVec

	// Transfer metrics
	transfersTotal           *prometheus.CounterVec
	accountsProvisionedTotal *prometheus.CounterVec

	// Persistence / eventing metrics
	dbOperationsTotal     *prometheus.CounterVec
	natsMessagesPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		submitAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_submit_attempts_total",
				Help: "Total number of transaction submission attempts by outcome",
			},
			[]string{"outcome"},
		),
		confirmationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transaction_confirmation_duration_seconds",
				Help:    "Wall time from first send to terminal outcome",
				Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"outcome"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_total",
				Help: "Total number of transfer operations by asset kind and status",
			},
			[]string{"kind", "status"},
		),
		accountsProvisionedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_accounts_provisioned_total",
				Help: "Associated token account resolutions by outcome (existing, created, already_existed)",
			},
			[]string{"outcome"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published by subject and status",
			},
			[]string{"subject", "status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordSubmitAttempt records one submission attempt outcome
// (sent, send_error, finalized, confirm_timeout).
func (m *Metrics) RecordSubmitAttempt(outcome string) {
	if m == nil {
		return
	}
	m.submitAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordConfirmation records the total wall time of a submit/confirm cycle.
func (m *Metrics) RecordConfirmation(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.confirmationDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordTransfer records a completed transfer operation.
func (m *Metrics) RecordTransfer(kind, status string) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(kind, status).Inc()
}

// RecordProvisioning records an associated-token-account resolution.
func (m *Metrics) RecordProvisioning(outcome string) {
	if m == nil {
		return
	}
	m.accountsProvisionedTotal.WithLabelValues(outcome).Inc()
}

// RecordDBOperation records a database operation.
func (m *Metrics) RecordDBOperation(operation, status string) {
	if m == nil {
		return
	}
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordNATSPublish records a NATS publish attempt.
func (m *Metrics) RecordNATSPublish(subject, status string) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
}
