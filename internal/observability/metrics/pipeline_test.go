package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestPipelineMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation("shower", OutcomeSucceeded)
	r.RecordOperation("shower", OutcomeSucceeded)
	r.RecordOperation("shower", OutcomeFailed)
	r.RecordError("shower", "malformed-track-json")
	r.RecordDuration("shower", 0.02)
	r.RecordRetry("set_observation_metadata")
	m.RecordRun("shower", 3.5, 1.6e9)

	families := gather(t, reg)

	outcomes := families["skyarchive_pipeline_outcomes_total"]
	require.NotNil(t, outcomes)
	counts := map[string]float64{}
	for _, metric := range outcomes.GetMetric() {
		l := labels(metric)
		assert.Equal(t, "shower", l["stage"])
		counts[l["outcome"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{OutcomeSucceeded: 2, OutcomeFailed: 1}, counts)

	retries := families["skyarchive_archive_retries_total"]
	require.NotNil(t, retries)
	require.Len(t, retries.GetMetric(), 1)
	assert.InDelta(t, 1, retries.GetMetric()[0].GetCounter().GetValue(), 0)

	items := families["skyarchive_pipeline_item_duration_seconds"]
	require.NotNil(t, items)
	assert.Equal(t, uint64(1), items.GetMetric()[0].GetHistogram().GetSampleCount())

	last := families["skyarchive_pipeline_last_run_success_timestamp_seconds"]
	require.NotNil(t, last)
	assert.InDelta(t, 1.6e9, last.GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestPipelineMetricsRegisterTwice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(reg)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(reg)
	assert.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NoOpRecorder{}
	assert.NotPanics(t, func() {
		r.RecordOperation("x", "y")
		r.RecordDuration("x", 1)
		r.RecordError("x", "y")
		r.RecordRetry("x")
	})
}
