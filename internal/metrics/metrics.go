package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Wallet Metrics
	MutationsTotal   *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	BalanceConflicts prometheus.Counter

	// Admission Metrics
	AdmissionRejections *prometheus.CounterVec
	AdmissionInFlight   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallets_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallets_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallets_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),

		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallets_mutations_total",
				Help: "Wallet mutations by operation type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallets_mutation_duration_seconds",
				Help:    "Duration of wallet mutations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BalanceConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wallets_balance_conflicts_total",
				Help: "Conditional balance updates that lost to a concurrent writer",
			},
		),

		AdmissionRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallets_admission_rejections_total",
				Help: "Requests rejected before execution, by reason",
			},
			[]string{"reason"},
		),
		AdmissionInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallets_admission_in_flight",
				Help: "Admitted mutations currently holding a concurrency slot",
			},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration.Seconds())
}

func (m *Metrics) RecordMutation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(operation, outcome).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.BalanceConflicts.Inc()
}

func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.AdmissionRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SlotAcquired() {
	if m == nil {
		return
	}
	m.AdmissionInFlight.Inc()
}

func (m *Metrics) SlotReleased() {
	if m == nil {
		return
	}
	m.AdmissionInFlight.Dec()
}
