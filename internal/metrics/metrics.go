// Package metrics exposes Prometheus instrumentation for the pipeline stages.
//
// All record methods are safe to call on a nil *Metrics, which disables
// instrumentation.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mendel"

// Queue names used as label values.
const (
	QueueCache   = "cache"
	QueueActions = "actions"
	QueuePublish = "publish"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	ingested      *prometheus.CounterVec // by source
	queueRejected *prometheus.CounterVec // by queue
	cacheValues   *prometheus.CounterVec // by status: changed, unchanged, invalid, unknown
	actionRuns    *prometheus.CounterVec // by action
	actionRunTime prometheus.Histogram
	published     *prometheus.CounterVec // by publisher
	publishErrors *prometheus.CounterVec // by publisher
	queueDepth    *prometheus.GaugeVec   // by queue
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "metric_data_total",
			Help:      "Total number of metric data records produced by ingest handlers",
		}, []string{"source"}),

		queueRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "rejected_batches_total",
			Help:      "Total number of batches dropped because a queue was full",
		}, []string{"queue"}),

		cacheValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "values_total",
			Help:      "Total number of values processed by the cache stage",
		}, []string{"status"}),

		actionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "runs_total",
			Help:      "Total number of action runs",
		}, []string{"action"}),

		actionRunTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "batch_duration_seconds",
			Help:      "Time spent running the actions of one batch",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "results_total",
			Help:      "Total number of results handed to publishers",
		}, []string{"publisher"}),

		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "errors_total",
			Help:      "Total number of failed publish attempts",
		}, []string{"publisher"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth_batches",
			Help:      "Batches waiting in a queue when its consumer last polled",
		}, []string{"queue"}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ingested,
		m.queueRejected,
		m.cacheValues,
		m.actionRuns,
		m.actionRunTime,
		m.published,
		m.publishErrors,
		m.queueDepth,
	}
}

// Ingested counts n records produced from source.
func (m *Metrics) Ingested(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ingested.WithLabelValues(source).Add(float64(n))
}

// QueueRejected counts a batch refused by a full or stopped queue.
func (m *Metrics) QueueRejected(queue string) {
	if m == nil {
		return
	}
	m.queueRejected.WithLabelValues(queue).Inc()
}

// QueueDepth records the number of batches waiting in queue.
func (m *Metrics) QueueDepth(queue string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}

// CacheValues records the outcome of one cache batch.
func (m *Metrics) CacheValues(changed, unchanged, invalid, unknown int) {
	if m == nil {
		return
	}
	m.cacheValues.WithLabelValues("changed").Add(float64(changed))
	m.cacheValues.WithLabelValues("unchanged").Add(float64(unchanged))
	m.cacheValues.WithLabelValues("invalid").Add(float64(invalid))
	m.cacheValues.WithLabelValues("unknown").Add(float64(unknown))
}

// ActionRun counts one run of action.
func (m *Metrics) ActionRun(action string) {
	if m == nil {
		return
	}
	m.actionRuns.WithLabelValues(action).Inc()
}

// ActionBatch records the time spent on one actions batch.
func (m *Metrics) ActionBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.actionRunTime.Observe(d.Seconds())
}

// Published records the outcome of one publish attempt.
func (m *Metrics) Published(publisher string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.publishErrors.WithLabelValues(publisher).Inc()
		return
	}
	m.published.WithLabelValues(publisher).Inc()
}
