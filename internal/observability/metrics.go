package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tokenswap/internal/model"
)

const namespace = "tokenswap"

// Metrics holds the pool program's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationLatency   *prometheus.HistogramVec
	SwapAmountIn       prometheus.Histogram
	SwapAmountOut      prometheus.Histogram
	SlippageRejections prometheus.Counter
	JournalFailures    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "operations_total",
				Help:      "Pool operations by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		OperationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "operation_duration_seconds",
				Help:      "Time spent inside one host invocation",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
		SwapAmountIn: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "amount_in",
			Help:      "Swap input amounts in base units",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 12),
		}),
		SwapAmountOut: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "amount_out",
			Help:      "Swap output amounts in base units",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 12),
		}),
		SlippageRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "slippage_rejections_total",
			Help:      "Swaps rejected because the output was below the caller's minimum",
		}),
		JournalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "failures_total",
			Help:      "Committed operations that could not be written to the journal",
		}),
	}
}

func (m *Metrics) ObserveOperation(kind model.OperationKind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(string(kind), status).Inc()
	m.OperationLatency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSwap(amountIn, amountOut uint64) {
	if m == nil {
		return
	}
	m.SwapAmountIn.Observe(float64(amountIn))
	m.SwapAmountOut.Observe(float64(amountOut))
}

func (m *Metrics) SlippageRejected() {
	if m == nil {
		return
	}
	m.SlippageRejections.Inc()
}

func (m *Metrics) JournalFailed() {
	if m == nil {
		return
	}
	m.JournalFailures.Inc()
}
