// internal/utils/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

// ObserveOperation records the outcome and duration of a lifecycle operation.
func (c *Collector) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.operations.WithLabelValues(operation, status, domain.KindName(err)).Inc()
	c.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveTransition moves one position mint between stage gauges.
func (c *Collector) ObserveTransition(t domain.Transition) {
	if t.From != domain.StageUnallocated {
		c.stages.WithLabelValues(t.From.String()).Dec()
	}
	c.stages.WithLabelValues(t.To.String()).Inc()
}

// RecordRewardSlot counts a bound reward slot.
func (c *Collector) RecordRewardSlot(index int) {
	c.rewards.WithLabelValues(strconv.Itoa(index)).Inc()
}

// RecordRPCLatency records the latency of one RPC request.
func (c *Collector) RecordRPCLatency(method, endpoint string, duration time.Duration) {
	c.rpcLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
