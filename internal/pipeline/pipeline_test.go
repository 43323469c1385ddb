package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/observability/metrics"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/track"
)

// 2020-08-12T23:00:00Z
const sceneStart = 1597273200.0

func newTestArchive(t *testing.T) *datastore.Archive {
	t.Helper()

	m, err := datastore.NewManager(&conf.ArchiveSettings{
		Type:   "sqlite",
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "archive.db")},
	})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	return datastore.NewArchive(m.DB())
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Pipeline: conf.PipelineSettings{Workers: 2, User: "pipeline-test"},
		Archive: conf.ArchiveSettings{Retry: conf.RetrySettings{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		}},
	}
}

func testCatalogue(t *testing.T) *refdata.Catalogue {
	t.Helper()
	cat, err := refdata.Load(&conf.RefDataSettings{
		Cameras: "/nonexistent/cameras.xml",
		Lenses:  "/nonexistent/lenses.xml",
		Showers: "/nonexistent/meteor_showers.xml",
	})
	require.NoError(t, err)
	return cat
}

// countingRecorder keeps every call for assertions.
type countingRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	errors     map[string]int
	retries    int
	durations  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{operations: map[string]int{}, errors: map[string]int{}}
}

func (c *countingRecorder) RecordOperation(stage, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations[stage+"/"+outcome]++
}

func (c *countingRecorder) RecordDuration(string, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations++
}

func (c *countingRecorder) RecordError(stage, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[stage+"/"+category]++
}

func (c *countingRecorder) RecordRetry(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

func pathJSON(t *testing.T, samples []track.Sample) string {
	t.Helper()
	rows := make([][4]float64, len(samples))
	for i, s := range samples {
		rows[i] = [4]float64{s.X, s.Y, s.Intensity, s.UTC}
	}
	b, err := json.Marshal(rows)
	require.NoError(t, err)
	return string(b)
}

func addTrack(t *testing.T, a *datastore.Archive, id, obstoryID, category, path string, utc, duration float64) {
	t.Helper()
	require.NoError(t, a.CreateObservation(context.Background(), datastore.Observation{
		PublicID:      id,
		ObservatoryID: obstoryID,
		Time:          utc,
		Type:          metadata.ObservationTypeMovingObject,
		Metadata: metadata.Map{
			metadata.KeyPath:     metadata.String(path),
			metadata.KeyDuration: metadata.Float(duration),
			metadata.KeyCategory: metadata.String(category),
		},
	}))
}

// droppedFrameTrack is 30 samples at 25 fps moving 4 px per frame, with 16 px
// lost before sample 15.
func droppedFrameTrack() []track.Sample {
	samples := make([]track.Sample, 30)
	for i := range samples {
		x := 100 + 4*float64(i)
		if i >= 15 {
			x += 16
		}
		samples[i] = track.Sample{X: x, Y: 300, Intensity: 40, UTC: sceneStart + 0.04*float64(i)}
	}
	return samples
}

func TestDetectFrameDropsWritesList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	require.NoError(t, a.UpsertObservatory(ctx, datastore.Observatory{PublicID: "cam", Latitude: 52.2, Longitude: 0.12}))

	addTrack(t, a, "good", "cam", metadata.CategoryPlane, pathJSON(t, droppedFrameTrack()), sceneStart, 1.2)
	addTrack(t, a, "broken", "cam", metadata.CategoryMeteor, "[[1, 2, 3", sceneStart+10, 1)

	rec := newCountingRecorder()
	r := NewRunner(testSettings(), a, nil, WithRecorder(rec))
	w := Window{TimeMin: sceneStart - 60, TimeMax: sceneStart + 60}

	report, err := r.DetectFrameDrops(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, StageFrameDrop, report.Stage)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeSucceeded])
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeSkipped])
	assert.Equal(t, 1, report.Errors[string(errors.CategoryMalformedTrackJSON)])
	assert.Equal(t, 2, report.Total())

	obs, err := a.GetObservation(ctx, "good")
	require.NoError(t, err)
	list, ok := obs.Metadata.String(metadata.KeyFrameDropList)
	require.True(t, ok)
	var drops [][4]float64
	require.NoError(t, json.Unmarshal([]byte(list), &drops))
	require.Len(t, drops, 1)
	assert.InDelta(t, 15, drops[0][0], 0)
	assert.InDelta(t, 20, drops[0][3], 1e-9)

	assert.Equal(t, 1, rec.operations["framedrop/succeeded"])
	assert.Equal(t, 1, rec.operations["framedrop/skipped"])
	assert.Equal(t, 1, rec.errors["framedrop/malformed-track-json"])
	assert.Equal(t, 2, rec.durations)

	w.Flush = true
	report, err = r.DetectFrameDrops(ctx, w)
	require.NoError(t, err)
	assert.Positive(t, report.Flushed)
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeSucceeded])
}

func TestIdentifyShowersSkipsUnresolvableCameras(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	require.NoError(t, a.UpsertObservatory(ctx, datastore.Observatory{PublicID: "bare", Latitude: 52.2, Longitude: 0.12}))
	addTrack(t, a, "m1", "bare", metadata.CategoryMeteor, pathJSON(t, droppedFrameTrack()), sceneStart, 1.2)
	addTrack(t, a, "s1", "bare", metadata.CategorySatellite, pathJSON(t, droppedFrameTrack()), sceneStart, 1.2)

	r := NewRunner(testSettings(), a, testCatalogue(t))
	report, err := r.IdentifyShowers(ctx, Window{TimeMin: sceneStart - 60, TimeMax: sceneStart + 60})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total(), "only the meteor is selected")
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeSkipped])
	assert.Equal(t, 1, report.Errors[string(errors.CategoryInsufficientCameraMetadata)])

	report, err = r.IdentifyShowers(ctx, Window{TimeMin: sceneStart - 60, TimeMax: sceneStart + 60, All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total())
}

func TestRunStopsAtDeadline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestArchive(t)
	require.NoError(t, a.UpsertObservatory(ctx, datastore.Observatory{PublicID: "cam"}))
	addTrack(t, a, "late", "cam", metadata.CategoryMeteor, pathJSON(t, droppedFrameTrack()), sceneStart, 1.2)

	r := NewRunner(testSettings(), a, nil)
	report, err := r.DetectFrameDrops(ctx, Window{
		TimeMin:  sceneStart - 60,
		TimeMax:  sceneStart + 60,
		MustStop: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, report.Stopped)
	assert.Zero(t, report.Total())

	obs, err := a.GetObservation(ctx, "late")
	require.NoError(t, err)
	_, ok := obs.Metadata.String(metadata.KeyFrameDropList)
	assert.False(t, ok)
}

func TestRunCommitsInWindowOrderWithOneWorker(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	r := NewRunner(settings, newTestArchive(t), nil)

	var mu sync.Mutex
	var seen []string
	items := []item{{id: "a"}, {id: "b"}, {id: "c"}, {id: "d"}}
	report, err := r.run(context.Background(), "order", Window{}, 1, items,
		func(_ context.Context, it item) (itemResult, error) {
			mu.Lock()
			seen = append(seen, it.id)
			mu.Unlock()
			if it.id == "c" {
				return itemResult{}, errors.Newf("no fit").Category(errors.CategoryFitRejected).Build()
			}
			return itemResult{outcome: metrics.OutcomeSucceeded}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
	assert.Equal(t, 3, report.Outcomes[metrics.OutcomeSucceeded])
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeRejected])
}

func TestRunAbortsWhenArchiveStaysDown(t *testing.T) {
	t.Parallel()

	r := NewRunner(testSettings(), newTestArchive(t), nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	down := errors.Newf("connection refused").Category(errors.CategoryArchiveUnavailable).Build()
	report, err := r.run(context.Background(), "abort", Window{}, 1, []item{{id: "a"}},
		func(_ context.Context, _ item) (itemResult, error) {
			return itemResult{}, down
		})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchiveUnavailable))
	assert.Equal(t, 1, report.Outcomes[metrics.OutcomeFailed])
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category errors.ErrorCategory
		want     string
	}{
		{errors.CategoryInsufficientCameraMetadata, metrics.OutcomeSkipped},
		{errors.CategoryMalformedTrackJSON, metrics.OutcomeSkipped},
		{errors.CategoryValidation, metrics.OutcomeSkipped},
		{errors.CategoryFitRejected, metrics.OutcomeRejected},
		{errors.CategoryOptimizer, metrics.OutcomeFailed},
		{errors.CategoryDatabase, metrics.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			t.Parallel()
			err := errors.Newf("x").Category(tt.category).Build()
			assert.Equal(t, tt.want, outcomeOf(err))
		})
	}
}
