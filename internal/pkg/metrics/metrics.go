// Package metrics holds the Prometheus collectors of the service. A single Metrics value is
// built at startup and handed to every component that records something.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "depositwatch"

// Metrics implements fetchqueue.Recorder and deposittrack.Recorder.
type Metrics struct {
	// fetch queue
	fetchBatchesTotal    prometheus.Counter
	fetchBatchSize       prometheus.Histogram
	fetchRetriesTotal    *prometheus.CounterVec
	fetchOperationsTotal *prometheus.CounterVec

	// pipeline
	blocksProcessedTotal prometheus.Counter
	blocksSkippedTotal   prometheus.Counter
	depositsTotal        *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
}

// NewMetrics registers every collector on registry, or on prometheus.DefaultRegisterer
// when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		fetchBatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_batches_total",
			Help:      "Total number of fetch queue batches executed",
		}),
		fetchBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_batch_size",
			Help:      "Number of operations per fetch queue batch",
			Buckets:   []float64{1, 2, 5, 10, 15, 25, 50, 100},
		}),
		fetchRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Total number of provider call retries by reason",
		}, []string{"reason"}),
		fetchOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_operations_total",
			Help:      "Total number of fetch operations by final status, after retries",
		}, []string{"status"}),

		blocksProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_processed_total",
			Help:      "Total number of blocks fully scanned",
		}),
		blocksSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_skipped_total",
			Help:      "Total number of blocks dropped after a failure",
		}),
		depositsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_total",
			Help:      "Total number of deposits handled by outcome",
		}, []string{"status"}),
		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notifications by outcome",
		}, []string{"status"}),
	}
}

// RecordFetchBatch counts a drained batch and its size.
func (m *Metrics) RecordFetchBatch(size int) {
	m.fetchBatchesTotal.Inc()
	m.fetchBatchSize.Observe(float64(size))
}

func (m *Metrics) RecordFetchRetry(reason string) {
	m.fetchRetriesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFetchOperation(status string) {
	m.fetchOperationsTotal.WithLabelValues(status).Inc()
}

// RecordBlock counts "skipped" blocks apart from every other outcome.
func (m *Metrics) RecordBlock(status string) {
	if status == "skipped" {
		m.blocksSkippedTotal.Inc()
		return
	}
	m.blocksProcessedTotal.Inc()
}

func (m *Metrics) RecordDeposit(status string) {
	m.depositsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordNotification(status string) {
	m.notificationsTotal.WithLabelValues(status).Inc()
}
