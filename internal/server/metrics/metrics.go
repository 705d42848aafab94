package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus collectors of the server.
type Metrics struct {
	AllowlistDecisionsTotal *prometheus.CounterVec
	TokensIssuedTotal       prometheus.Counter
	RevocationsTotal        *prometheus.CounterVec
	TokensPurgedTotal       prometheus.Counter

	BillingCallsTotal   *prometheus.CounterVec
	BillingCallDuration *prometheus.HistogramVec

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// Init returns Prometheus-backed Metrics registered on reg when enabled,
// otherwise NoopMetrics. A nil reg means the default registry.
func Init(enabled bool, reg prometheus.Registerer) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AllowlistDecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jwt_allowlist_decisions_total",
				Help: "Allowlist lookups made by the authentication layer",
			},
			[]string{"result"}, // allowed, expired, missing, error
		),
		TokensIssuedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "jwt_tokens_issued_total",
				Help: "Tokens recorded in the allowlist on issuance",
			},
		),
		RevocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jwt_revocations_total",
				Help: "Successful revocation requests",
			},
			[]string{"reason"}, // single, all, sign_out, refresh
		),
		TokensPurgedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "jwt_tokens_purged_total",
				Help: "Expired allowlist rows removed by the purger",
			},
		),
		BillingCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_calls_total",
				Help: "Calls made to the billing provider",
			},
			[]string{"operation", "result"},
		),
		BillingCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_call_duration_seconds",
				Help:    "Billing provider call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "HTTP requests currently being served",
			},
		),
	}
}

func (m *Metrics) RecordAllowlistDecision(result string) {
	m.AllowlistDecisionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokenIssued() {
	m.TokensIssuedTotal.Inc()
}

func (m *Metrics) RecordRevocation(reason string) {
	m.RevocationsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordTokensPurged(count int) {
	if count <= 0 {
		return
	}
	m.TokensPurgedTotal.Add(float64(count))
}

func (m *Metrics) RecordBillingCall(operation string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	m.BillingCallsTotal.WithLabelValues(operation, result).Inc()
	m.BillingCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
