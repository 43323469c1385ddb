package metrics

// Namespace prefixes every metric name.
const Namespace = "skyarchive"

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the first bucket for per-item durations (1ms to ~16s).
	BucketStart1ms = 0.001
	// BucketStart100ms is the first bucket for whole-run durations (100ms to ~27min).
	BucketStart100ms = 0.1

	BucketFactor2 = 2
	BucketCount15 = 15
)
