package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderCarriesContext(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("pointing missing")).
		Component("obstory").
		Category(CategoryInsufficientCameraMetadata).
		ObservationContext("obs-1", "cam-a").
		Context("utc", 1.5e9).
		Build()

	assert.Equal(t, "obstory", ee.GetComponent())
	ctx := ee.GetContext()
	assert.Equal(t, "obs-1", ctx["observation_id"])
	assert.Equal(t, "cam-a", ctx["obstory_id"])
	assert.InDelta(t, 1.5e9, ctx["utc"], 0)

	wrapped := fmt.Errorf("resolve: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryInsufficientCameraMetadata))
	assert.Equal(t, CategoryInsufficientCameraMetadata, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(NewStd("plain")))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := New(NewStd("a")).Category(CategoryFitRejected).Build()
	b := New(NewStd("b")).Category(CategoryFitRejected).Build()
	c := New(NewStd("c")).Category(CategoryNoCandidates).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())
}

func TestReporterReceivesErrorsWhenActive(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := ArchiveError(NewStd("connection refused"), "set_metadata")

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, CategoryArchiveUnavailable, ee.Category)
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"json", NewStd("unexpected end of JSON input"), "", CategoryMalformedTrackJSON},
		{"connection", NewStd("connection reset by peer"), "", CategoryArchiveUnavailable},
		{"component datastore", NewStd("constraint failed"), "datastore", CategoryDatabase},
		{"categorized", New(NewStd("x")).Category(CategoryFitRejected).Build(), "", CategoryFitRejected},
		{"fallback", NewStd("something"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestScrubMessageRemovesCredentials(t *testing.T) {
	t.Parallel()

	msg := scrubMessage("dial archive:s3cret@tcp(db.local:3306)/sky failed, password=hunter2")
	assert.NotContains(t, msg, "s3cret")
	assert.NotContains(t, msg, "hunter2")
	assert.Contains(t, msg, "archive:[REDACTED]@tcp(")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).
		Component("datastore").
		Category(CategoryArchiveUnavailable).
		Context("operation", "set_metadata").
		Build()

	assert.Equal(t, "Datastore Archive Unavailable Set Metadata", generateErrorTitle(ee))
}
