package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Transaction submission metrics
	submissionsTotal      *prometheus.CounterVec
	confirmLatencySeconds *prometheus.HistogramVec

	// Lookup table metrics
	tablesCreatedTotal  *prometheus.CounterVec
	tableAddressesTotal *prometheus.CounterVec
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
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_transaction_submissions_total",
				Help: "Total number of transaction submissions by outcome",
			},
			[]string{"endpoint", "status"},
		),
		confirmLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_transaction_confirm_latency_seconds",
				Help:    "Time between send and confirmation of a transaction",
				Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0, 60.0},
			},
			[]string{"endpoint"},
		),
		tablesCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_tables_created_total",
				Help: "Total number of lookup tables created",
			},
			[]string{"endpoint"},
		),
		tableAddressesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_table_addresses_appended_total",
				Help: "Total number of addresses appended to lookup tables",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordRPCCall records a single Solana RPC call.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, durationSeconds float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordSubmission records a transaction submission outcome
// ("confirmed", "rejected", or "unconfirmed").
func (m *Metrics) RecordSubmission(endpoint, status string) {
	m.submissionsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordConfirmLatency records the time a transaction took to confirm.
func (m *Metrics) RecordConfirmLatency(endpoint string, seconds float64) {
	m.confirmLatencySeconds.WithLabelValues(endpoint).Observe(seconds)
}

// RecordTableCreated records a successful lookup table creation.
func (m *Metrics) RecordTableCreated(endpoint string) {
	m.tablesCreatedTotal.WithLabelValues(endpoint).Inc()
}

// RecordTableExtended records addresses appended by a confirmed extension.
func (m *Metrics) RecordTableExtended(endpoint string, count int) {
	m.tableAddressesTotal.WithLabelValues(endpoint).Add(float64(count))
}
