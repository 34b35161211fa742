// Package metrics holds the Prometheus collectors walletd exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK            = "ok"
	ResultNotFound      = "not_found"
	ResultAlreadyExists = "already_exists"
	ResultInvalidName   = "invalid_name"
	ResultError         = "error"
)

// Metrics records wallet and ledger activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	walletOps      *prometheus.CounterVec
	walletDuration *prometheus.HistogramVec
	ledgerPings    *prometheus.CounterVec
	pingDuration   prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		walletOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletd_wallet_operations_total",
				Help: "Wallet operations by operation, backend and result",
			},
			[]string{"operation", "backend", "result"},
		),
		walletDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletd_wallet_operation_duration_seconds",
				Help:    "Duration of wallet operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation", "backend"},
		),
		ledgerPings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletd_ledger_pings_total",
				Help: "Ledger pings by result",
			},
			[]string{"result"},
		),
		pingDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "walletd_ledger_ping_duration_seconds",
				Help:    "Duration of ledger pings in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

// RecordWalletOp records one wallet operation.
func (m *Metrics) RecordWalletOp(operation, backend, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.walletOps.WithLabelValues(operation, backend, result).Inc()
	m.walletDuration.WithLabelValues(operation, backend).Observe(d.Seconds())
}

// RecordPing records one ledger ping.
func (m *Metrics) RecordPing(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.ledgerPings.WithLabelValues(result).Inc()
	m.pingDuration.Observe(d.Seconds())
}
