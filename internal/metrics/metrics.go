// Package metrics exposes the service's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "milcuentas"

type Metrics struct {
	LedgerMutations *prometheus.CounterVec
	RateRefreshes   *prometheus.CounterVec
	SnapshotSaves   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	ExchangeRate    *prometheus.GaugeVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		LedgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_mutations_total",
				Help:      "Ledger operations by kind and outcome",
			},
			[]string{"op", "result"},
		),
		RateRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_refreshes_total",
				Help:      "Exchange rate refresh attempts by outcome",
			},
			[]string{"result"},
		),
		SnapshotSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_saves_total",
				Help:      "Ledger snapshot persistence attempts by outcome",
			},
			[]string{"result"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Ledgers currently held in memory",
			},
		),
		ExchangeRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "exchange_rate",
				Help:      "Active base-currency multiplier per currency",
			},
			[]string{"currency"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.LedgerMutations,
		m.RateRefreshes,
		m.SnapshotSaves,
		m.ActiveSessions,
		m.ExchangeRate,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	m.LedgerMutations.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) RateRefresh(err error) {
	if m == nil {
		return
	}
	m.RateRefreshes.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SetRate(currency string, v float64) {
	if m == nil {
		return
	}
	m.ExchangeRate.WithLabelValues(currency).Set(v)
}

func (m *Metrics) SnapshotSave(err error) {
	if m == nil {
		return
	}
	m.SnapshotSaves.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) HTTPRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
