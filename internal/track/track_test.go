package track

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/obstory"
)

const t0 = 1565647200.0 // 2019-08-12T22:00:00Z

func testPointing() *obstory.Pointing {
	return &obstory.Pointing{
		ObservatoryID: "eddington0",
		Altitude:      60,
		Azimuth:       90,
		AngWidth:      40,
		AngHeight:     30,
		PixelWidth:    1280,
		PixelHeight:   720,
		Latitude:      52.2,
		Longitude:     0.12,
		Distortion:    [3]float64{-0.05, 0.01, 0},
	}
}

func pathJSON(samples []Sample) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("[%.6f,%.6f,%.1f,%.3f]", s.X, s.Y, s.Intensity, s.UTC)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func straightSamples(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		f := float64(i) / float64(n-1)
		out[i] = Sample{X: 640 + 260*f, Y: 360 + 160*f, Intensity: 100, UTC: t0 + 0.04*float64(i)}
	}
	return out
}

func bezierFor(s []Sample) string {
	mid, last := s[len(s)/2], s[len(s)-1]
	return fmt.Sprintf("[[%f,%f,%f],[%f,%f,%f],[%f,%f,%f]]",
		s[0].X, s[0].Y, s[0].UTC, mid.X, mid.Y, mid.UTC, last.X, last.Y, last.UTC)
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	samples, notes, err := ParsePath(`[[1,2,3,4],[5,6,7,8,9]]`, "")
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, []Sample{{1, 2, 3, 4}, {5, 6, 7, 8}}, samples)
}

func TestParsePathRescue(t *testing.T) {
	t.Parallel()

	bezier := `[[1,2,4],[3,4,6],[9,10,20]]`

	samples, notes, err := ParsePath(`[[1,2,3,4],[5,6,7,8],[9,10`, bezier)
	require.NoError(t, err)
	assert.Equal(t, []string{NoteRescued}, notes)
	require.Len(t, samples, 3, "middle control point is earlier than the recovered samples")
	assert.Equal(t, Sample{X: 9, Y: 10, UTC: 20}, samples[2])

	_, notes, err = ParsePath(`[[1,2,3,4],[5,6`, "")
	require.Error(t, err)
	assert.Equal(t, []string{NoteError}, notes)
	assert.True(t, errors.IsCategory(err, errors.CategoryMalformedTrackJSON))

	_, _, err = ParsePath(`garbage`, bezier)
	require.Error(t, err)
}

func TestParseBezier(t *testing.T) {
	t.Parallel()

	b, err := ParseBezier(`[[1,2,3],[4,5,6],[7,8,9]]`)
	require.NoError(t, err)
	assert.Equal(t, BezierPoint{X: 7, Y: 8, UTC: 9}, b[2])

	_, err = ParseBezier(`[[1,2,3]]`)
	require.Error(t, err)
	_, err = ParseBezier(`[[1,2]]`)
	require.Error(t, err)
}

func TestRescueRoundTrip(t *testing.T) {
	t.Parallel()

	p := testPointing()
	full := straightSamples(12)
	bezier := bezierFor(full)

	whole, _, err := ParsePath(pathJSON(full), bezier)
	require.NoError(t, err)
	truncated := pathJSON(full)
	truncated = truncated[:strings.LastIndex(truncated, "[")+5]
	rescued, notes, err := ParsePath(truncated, bezier)
	require.NoError(t, err)
	require.Equal(t, []string{NoteRescued}, notes)
	require.Len(t, rescued, len(whole))

	a := ProjectSamples(p, whole)
	b := ProjectSamples(p, rescued)
	for i := range a.Sky {
		d := projection.AngDist(a.Sky[i].RA*15*deg, a.Sky[i].Dec*deg, b.Sky[i].RA*15*deg, b.Sky[i].Dec*deg)
		assert.Less(t, d, 1e-6, "sample %d", i)
	}
}

func TestProjectSamplesGeometry(t *testing.T) {
	t.Parallel()

	p := testPointing()
	tr := ProjectSamples(p, []Sample{{X: 640, Y: 360, UTC: t0}})

	assert.InDelta(t, 60, tr.Horizon[0].Alt, 1e-6)
	assert.InDelta(t, 90, tr.Horizon[0].Az, 1e-6)

	up := vector.FromLatLng(p.Latitude, p.Longitude, 0).Vector().Unit()
	sl := tr.SightLines[0]
	assert.InDelta(t, 30*deg, up.AngleWith(sl.Direction), 1e-9)
	assert.InDelta(t, 30*deg, up.AngleWith(sl.Line().Dir), 1e-9)

	// The celestial and Earth-fixed lines are the same line seen in two frames.
	cel := sl.Celestial()
	celUp := vector.FromLatLngAt(p.Latitude, p.Longitude, 0, t0).Vector().Unit()
	assert.InDelta(t, 30*deg, celUp.AngleWith(cel.Dir), 1e-9)
}

func TestSkyToPixelInverse(t *testing.T) {
	t.Parallel()

	p := testPointing()
	samples := straightSamples(5)
	tr := ProjectSamples(p, samples)
	for i, s := range tr.Sky {
		x, y, ok := SkyToPixel(p, s.RA, s.Dec, samples[i].UTC)
		require.True(t, ok)
		assert.InDelta(t, samples[i].X, x, 1e-6)
		assert.InDelta(t, samples[i].Y, y, 1e-6)
	}

	// Anti-pode of the field centre has no image.
	ra, dec := p.FieldCentre(t0)
	_, _, ok := SkyToPixel(p, ra+12, -dec, t0)
	assert.False(t, ok)

	assert.Greater(t, tr.PathLength(), 5.0)
	v, err := tr.PathRaDec()
	require.NoError(t, err)
	list, ok := metadata.Map{"k": v}.String("k")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(list, "[["))
}

func TestProjectorProject(t *testing.T) {
	t.Parallel()

	src := obstory.NewMemorySource()
	src.AddObservatory(datastore.Observatory{PublicID: "eddington0", Latitude: 52.2, Longitude: 0.12})
	for k, v := range map[string]float64{
		metadata.KeyCameraWidth:          1280,
		metadata.KeyCameraHeight:         720,
		metadata.KeyOrientationAltitude:  60,
		metadata.KeyOrientationAzimuth:   90,
		metadata.KeyOrientationAngWidth:  40,
		metadata.KeyOrientationAngHeight: 30,
	} {
		src.SetMetadata("eddington0", k, metadata.Float(v), 0)
	}
	proj := NewProjector(obstory.NewResolver(src, nil, conf.ResolverSettings{}))

	samples := straightSamples(10)
	obs := &datastore.Observation{
		PublicID:      "obs1",
		ObservatoryID: "eddington0",
		Time:          t0,
		Type:          metadata.ObservationTypeMovingObject,
		Metadata: metadata.Map{
			metadata.KeyPath:           metadata.String(pathJSON(samples)),
			metadata.KeyDuration:       metadata.Float(0.36),
			metadata.KeyDetectionCount: metadata.Float(10),
		},
	}

	tr, err := proj.Project(context.Background(), obs)
	require.NoError(t, err)
	assert.False(t, tr.Rescued())
	assert.Len(t, tr.SightLines, 10)
	assert.Equal(t, "obs1", tr.SightLines[3].ObservationID)
	assert.Equal(t, 10, tr.DetectionCount)

	delete(obs.Metadata, metadata.KeyPath)
	_, err = proj.Project(context.Background(), obs)
	assert.True(t, errors.IsCategory(err, errors.CategoryMalformedTrackJSON))
}

func TestParsePathRejectsBadShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{name: "empty", path: `[]`},
		{name: "single sample", path: `[[10,10,1,100]]`},
		{name: "time runs backwards", path: `[[10,10,1,100],[20,20,1,99]]`},
		{name: "time runs backwards later", path: `[[10,10,1,100],[20,20,1,100],[30,30,1,99.5]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, notes, err := ParsePath(tt.path, "")
			require.Error(t, err)
			assert.Equal(t, []string{NoteError}, notes)
			assert.True(t, errors.IsCategory(err, errors.CategoryMalformedTrackJSON))
		})
	}

	// Repeated times are allowed.
	samples, _, err := ParsePath(`[[10,10,1,100],[20,20,1,100]]`, "")
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	// A rescued path is held to the same rules.
	_, _, err = ParsePath(`[[1,2,3,30],[5,6`, `[[1,2,4],[3,4,6],[9,10,20]]`)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMalformedTrackJSON))
}

func TestProjectorRejectsOffFramePixels(t *testing.T) {
	t.Parallel()

	src := obstory.NewMemorySource()
	src.AddObservatory(datastore.Observatory{PublicID: "eddington0", Latitude: 52.2, Longitude: 0.12})
	for k, v := range map[string]float64{
		metadata.KeyCameraWidth:          1280,
		metadata.KeyCameraHeight:         720,
		metadata.KeyOrientationAltitude:  60,
		metadata.KeyOrientationAzimuth:   90,
		metadata.KeyOrientationAngWidth:  40,
		metadata.KeyOrientationAngHeight: 30,
	} {
		src.SetMetadata("eddington0", k, metadata.Float(v), 0)
	}
	proj := NewProjector(obstory.NewResolver(src, nil, conf.ResolverSettings{}))

	tests := []struct {
		name string
		bad  Sample
	}{
		{name: "far outside", bad: Sample{X: -5000, Y: 90000}},
		{name: "left of frame", bad: Sample{X: -0.5, Y: 360}},
		{name: "below frame", bad: Sample{X: 640, Y: 720.5}},
		{name: "right of frame", bad: Sample{X: 1281, Y: 360}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			samples := straightSamples(5)
			bad := tt.bad
			bad.UTC = samples[4].UTC + 0.04
			samples = append(samples, bad)

			obs := &datastore.Observation{
				PublicID:      "obs1",
				ObservatoryID: "eddington0",
				Time:          t0,
				Type:          metadata.ObservationTypeMovingObject,
				Metadata:      metadata.Map{metadata.KeyPath: metadata.String(pathJSON(samples))},
			}
			_, err := proj.Project(context.Background(), obs)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}
