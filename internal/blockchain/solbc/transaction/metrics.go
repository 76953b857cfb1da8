// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	attempts          *prometheus.CounterVec
	durationHistogram prometheus.Histogram
}

// NewMetrics builds submission metrics and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whirlpool_positions",
		Name:      "tx_attempts_total",
		Help:      "Transaction submission attempts by outcome",
	}, []string{"operation", "outcome"})
	durationHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "whirlpool_positions",
		Name:      "tx_duration_seconds",
		Help:      "Time from first submission to confirmation",
		Buckets:   prometheus.LinearBuckets(0.5, 2, 10),
	})

	if reg != nil {
		reg.MustRegister(attempts, durationHistogram)
	}

	return &Metrics{
		attempts:          attempts,
		durationHistogram: durationHistogram,
	}
}

func (tm *Metrics) attempt(operation, outcome string) {
	tm.attempts.WithLabelValues(operation, outcome).Inc()
}

func (tm *Metrics) TrackTransaction(start time.Time) {
	tm.durationHistogram.Observe(time.Since(start).Seconds())
}
