package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cosim",
			Subsystem: "driver",
			Name:      "steps_total",
			Help:      "Completed co-simulation steps.",
		},
		[]string{"node"},
	)
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cosim",
			Subsystem: "driver",
			Name:      "step_duration_seconds",
			Help:      "Wall time per co-simulation step, including exchange and dynamics.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node"},
	)
	contactVertices = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cosim",
			Subsystem: "coupling",
			Name:      "contact_vertices",
			Help:      "Mesh vertices in contact at the last exchange.",
		},
		[]string{"node"},
	)
	exchangeBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cosim",
			Subsystem: "coupling",
			Name:      "exchange_bytes_total",
			Help:      "Payload bytes exchanged with the counterpart.",
		},
		[]string{"node", "direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(stepsTotal, stepDuration, contactVertices, exchangeBytes)
	})
}

func RecordStep(node string, d time.Duration) {
	stepsTotal.WithLabelValues(node).Inc()
	stepDuration.WithLabelValues(node).Observe(d.Seconds())
}

func RecordContactVertices(node string, n int) {
	contactVertices.WithLabelValues(node).Set(float64(n))
}

func RecordExchange(node, direction string, bytes int) {
	exchangeBytes.WithLabelValues(node, direction).Add(float64(bytes))
}
