// Package metrics provides Prometheus metrics for the archive pipelines.
package metrics

// Recorder is what a pipeline stage reports to. Components depend on this
// rather than on a concrete collector so tests can pass NoOpRecorder.
type Recorder interface {
	// RecordOperation counts one processed item with its outcome, such as
	// "succeeded" or "skipped".
	RecordOperation(stage, outcome string)

	// RecordDuration records how long one item took, in seconds.
	RecordDuration(stage string, seconds float64)

	// RecordError counts a failure by error category.
	RecordError(stage, category string)

	// RecordRetry counts one retried archive operation.
	RecordRetry(operation string)
}

// NoOpRecorder discards everything.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(string, string) {}
func (NoOpRecorder) RecordDuration(string, float64) {}
func (NoOpRecorder) RecordError(string, string)     {}
func (NoOpRecorder) RecordRetry(string)             {}
