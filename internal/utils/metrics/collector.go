// internal/utils/metrics/collector.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricType identifies a metric held by the collector.
type MetricType string

const (
	OperationCounterType  MetricType = "operation_counter"
	OperationDurationType MetricType = "operation_duration"
	RPCLatencyType        MetricType = "rpc_latency"
	PositionStageType     MetricType = "position_stage"
	RewardSlotsType       MetricType = "reward_slots"
)

const namespace = "whirlpool_positions"

// Collector owns the lifecycle metrics of one process.
type Collector struct {
	metrics sync.Map

	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	rpcLatency *prometheus.HistogramVec
	stages     *prometheus.GaugeVec
	rewards    *prometheus.CounterVec
}

// NewCollector creates a collector registered with the default registry.
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith creates a collector registered with reg. Tests pass a
// fresh prometheus.NewRegistry() so collectors never collide.
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of lifecycle operations processed",
			},
			[]string{"operation", "status", "kind"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Lifecycle operation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"operation"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"method", "endpoint"},
		),
		stages: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "positions",
				Help:      "Number of tracked position mints per lifecycle stage",
			},
			[]string{"stage"},
		),
		rewards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reward_slots_bound_total",
				Help:      "Total number of reward slots bound",
			},
			[]string{"index"},
		),
	}

	metricsMap := map[MetricType]prometheus.Collector{
		OperationCounterType:  c.operations,
		OperationDurationType: c.durations,
		RPCLatencyType:        c.rpcLatency,
		PositionStageType:     c.stages,
		RewardSlotsType:       c.rewards,
	}
	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		if reg != nil {
			reg.MustRegister(metric)
		}
	}
	return c
}

// Reset clears all metrics (useful for tests).
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}
