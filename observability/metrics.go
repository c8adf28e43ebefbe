package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OverseerMetrics tracks request outcomes, liquidations and epoch settlement
// figures for the overseer. Obtain the shared instance via Overseer.
type OverseerMetrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	liquidations prometheus.Counter
	epochs       prometheus.Counter
	buffer       prometheus.Gauge
	depositRate  prometheus.Gauge
}

var (
	overseerOnce     sync.Once
	overseerRegistry *OverseerMetrics
)

// Overseer returns the lazily-initialised metrics registry tracking overseer
// operations.
func Overseer() *OverseerMetrics {
	overseerOnce.Do(func() {
		overseerRegistry = &OverseerMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "requests_total",
				Help:      "Total overseer operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for overseer operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "liquidations_total",
				Help:      "Count of executed collateral liquidations.",
			}),
			epochs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "epochs_executed_total",
				Help:      "Count of executed epoch settlements.",
			}),
			buffer: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "interest_buffer",
				Help:      "Interest buffer reported by the latest epoch acknowledgement.",
			}),
			depositRate: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "moneymarket",
				Subsystem: "overseer",
				Name:      "deposit_rate",
				Help:      "Effective per-block deposit rate from the latest finalized epoch.",
			}),
		}
		prometheus.MustRegister(
			overseerRegistry.requests,
			overseerRegistry.latency,
			overseerRegistry.liquidations,
			overseerRegistry.epochs,
			overseerRegistry.buffer,
			overseerRegistry.depositRate,
		)
	})
	return overseerRegistry
}

// ObserveRequest records one overseer operation with its outcome and
// duration.
func (m *OverseerMetrics) ObserveRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if operation = strings.TrimSpace(operation); operation == "" {
		operation = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveLiquidation increments the liquidation counter.
func (m *OverseerMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// ObserveEpochExecuted increments the epoch counter.
func (m *OverseerMetrics) ObserveEpochExecuted() {
	if m == nil {
		return
	}
	m.epochs.Inc()
}

// SetInterestBuffer records the acknowledged interest buffer.
func (m *OverseerMetrics) SetInterestBuffer(amount float64) {
	if m == nil {
		return
	}
	m.buffer.Set(amount)
}

// SetDepositRate records the finalized per-block deposit rate.
func (m *OverseerMetrics) SetDepositRate(rate float64) {
	if m == nil {
		return
	}
	m.depositRate.Set(rate)
}
