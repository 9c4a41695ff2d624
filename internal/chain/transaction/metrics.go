// internal/chain/transaction/metrics.go
package transaction

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	successCounter    prometheus.Counter
	failureCounter    prometheus.Counter
	durationHistogram prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide transaction metrics; registration with
// the default registry happens once.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			successCounter: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dexclient_tx_success_total",
				Help: "Total number of confirmed transactions",
			}),
			failureCounter: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dexclient_tx_failure_total",
				Help: "Total number of failed transactions",
			}),
			durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "dexclient_tx_duration_seconds",
				Help:    "Submit-to-confirmation duration in seconds",
				Buckets: prometheus.LinearBuckets(0, 0.5, 20),
			}),
		}
		prometheus.MustRegister(metrics.successCounter, metrics.failureCounter, metrics.durationHistogram)
	})
	return metrics
}

func (m *Metrics) TrackTransaction(start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
}
