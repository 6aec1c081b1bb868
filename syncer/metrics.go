package syncer

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	sent       prometheus.Counter
	failures   *prometheus.CounterVec
	duration   prometheus.Histogram
	checkpoint prometheus.Gauge
}

// NewMetrics builds the sync metrics and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watch",
			Subsystem: "sync",
			Name:      "records_sent_total",
			Help:      "Records accepted by the collector.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watch",
			Subsystem: "sync",
			Name:      "failures_total",
			Help:      "Failed sync attempts by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "watch",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Time spent reading, sending and checkpointing one sync.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "watch",
			Subsystem: "sync",
			Name:      "checkpoint",
			Help:      "Highest record id confirmed delivered.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sent, m.failures, m.duration, m.checkpoint)
	}
	return m
}
