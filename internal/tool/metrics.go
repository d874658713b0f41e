package tool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for tool
// invocations.
type Metrics struct {
	InvocationsTotal *prometheus.CounterVec   // labels: tool, outcome
	Duration         *prometheus.HistogramVec // labels: tool
	RowsRead         prometheus.Histogram
}

// NewMetrics creates and registers all tool metrics with the given
// registerer. Pass a fresh prometheus.NewRegistry in tests to avoid
// duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tianqi",
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tianqi",
			Name:      "tool_duration_seconds",
			Help:      "Duration of a complete validate-execute-transform cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"tool"}),
		RowsRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tianqi",
			Name:      "tool_rows_read",
			Help:      "Rows returned by the bounded store read per invocation.",
			Buckets:   []float64{0, 1, 10, 50, 100, 200, 500},
		}),
	}
	reg.MustRegister(m.InvocationsTotal, m.Duration, m.RowsRead)
	return m
}
