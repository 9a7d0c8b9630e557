package observability

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Zap outcome labels.
const (
	StatusForwarded      = "forwarded"
	StatusSkipped        = "skipped"
	StatusNoBalance      = "no_balance"
	StatusTransferFailed = "transfer_failed"
	StatusError          = "error"
)

// Metrics holds the Prometheus instruments for a Zapper.
type Metrics struct {
	ZapsTotal    *prometheus.CounterVec
	ZappedAmount *prometheus.CounterVec
	ZapDuration  *prometheus.HistogramVec
}

// NewMetrics creates the instruments and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ZapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapnzap_zaps_total",
			Help: "Trigger invocations by trigger and outcome.",
		}, []string{"trigger", "status"}),
		ZappedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapnzap_zapped_amount_total",
			Help: "Native currency wrapped and forwarded, in base units.",
		}, []string{"trigger"}),
		ZapDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wrapnzap_zap_duration_seconds",
			Help:    "Duration of trigger invocations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
	}
	reg.MustRegister(m.ZapsTotal, m.ZappedAmount, m.ZapDuration)
	return m
}

// RecordZap records one trigger invocation. amount is only counted for
// forwarded zaps.
func (m *Metrics) RecordZap(trigger, status string, amount *big.Int, d time.Duration) {
	m.ZapsTotal.WithLabelValues(trigger, status).Inc()
	m.ZapDuration.WithLabelValues(trigger).Observe(d.Seconds())
	if status == StatusForwarded && amount != nil {
		f, _ := new(big.Float).SetInt(amount).Float64()
		m.ZappedAmount.WithLabelValues(trigger).Add(f)
	}
}
