package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics counts what the pipelines did.
type PipelineMetrics struct {
	outcomesTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	itemDuration   *prometheus.HistogramVec
	runDuration    *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	lastRunSuccess *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Items processed by each stage, by outcome",
		},
		[]string{"stage", "outcome"}, // outcome: succeeded, skipped, rejected, failed
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Item failures by error category",
		},
		[]string{"stage", "category"},
	)

	m.itemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "item_duration_seconds",
			Help:      "Time spent on one observation, group or image",
			Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"stage"},
	)

	m.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Time taken by a whole pipeline run",
			Buckets:   prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount15),
		},
		[]string{"stage"},
	)

	m.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "archive",
			Name:      "retries_total",
			Help:      "Archive operations retried after the archive was unavailable",
		},
		[]string{"operation"},
	)

	m.lastRunSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time at which each stage last completed",
		},
		[]string{"stage"},
	)
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.outcomesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.itemDuration.Describe(ch)
	m.runDuration.Describe(ch)
	m.retriesTotal.Describe(ch)
	m.lastRunSuccess.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.outcomesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.itemDuration.Collect(ch)
	m.runDuration.Collect(ch)
	m.retriesTotal.Collect(ch)
	m.lastRunSuccess.Collect(ch)
}

// RecordOperation counts one item.
func (m *PipelineMetrics) RecordOperation(stage, outcome string) {
	m.outcomesTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordDuration observes one item's processing time.
func (m *PipelineMetrics) RecordDuration(stage string, seconds float64) {
	m.itemDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordError counts one failure.
func (m *PipelineMetrics) RecordError(stage, category string) {
	m.errorsTotal.WithLabelValues(stage, category).Inc()
}

// RecordRetry counts one archive retry.
func (m *PipelineMetrics) RecordRetry(operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

// RecordRun observes a completed run and stamps its completion time.
func (m *PipelineMetrics) RecordRun(stage string, seconds, completedAt float64) {
	m.runDuration.WithLabelValues(stage).Observe(seconds)
	m.lastRunSuccess.WithLabelValues(stage).Set(completedAt)
}
