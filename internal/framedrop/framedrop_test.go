package framedrop

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/track"
)

const videoStart = 1597273200.0

// steadyTrack moves step pixels per 25 fps frame, with an extra jump added
// before sample jumpAt.
func steadyTrack(n int, step float64, jumpAt int, jump float64) []track.Sample {
	out := make([]track.Sample, n)
	var x float64
	for i := range out {
		if i > 0 {
			x += step
		}
		if i == jumpAt {
			x += jump
		}
		out[i] = track.Sample{X: 100 + x, Y: 200, Intensity: 50, UTC: videoStart + 1 + 0.04*float64(i)}
	}
	return out
}

func TestDetectSingleDrop(t *testing.T) {
	t.Parallel()

	samples := make([]track.Sample, 30)
	for i := range samples {
		x := 4 * float64(i)
		if i >= 15 {
			x += 16
		}
		samples[i] = track.Sample{X: x, Y: 300, UTC: videoStart + 0.04*float64(i)}
	}

	drops := NewDetector(conf.FrameDropSettings{}).Detect(samples, videoStart)
	require.Len(t, drops, 1)
	assert.Equal(t, 15, drops[0].Index)
	assert.InDelta(t, 20, drops[0].PixelDistance, 1e-9)
	assert.InDelta(t, samples[15].UTC, drops[0].BreakUTC, 1e-9)
	assert.InDelta(t, 0.6, drops[0].VideoTime, 1e-6)
}

func TestDetectThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []track.Sample
		want    []int
	}{
		{"steady", steadyTrack(30, 4, -1, 0), nil},
		// 15 px over 40 ms is five times the pace but not longer than 16 px.
		{"short jump", steadyTrack(30, 3, 12, 12), nil},
		// 18 px against a 6 px pace is only three times it.
		{"slow jump", steadyTrack(30, 6, 12, 12), nil},
		{"mid track", steadyTrack(40, 3, 10, 20), []int{10}},
		{"near the start", steadyTrack(20, 2, 1, 30), []int{1}},
		{"empty", nil, nil},
		{"single sample", steadyTrack(1, 2, -1, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []int
			for _, d := range NewDetector(conf.FrameDropSettings{}).Detect(tt.samples, videoStart) {
				got = append(got, d.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectIgnoresStalledFrames(t *testing.T) {
	t.Parallel()

	samples := steadyTrack(20, 4, -1, 0)
	// A repeated timestamp carries no speed.
	samples[8].UTC = samples[7].UTC
	samples[8].X = samples[7].X + 40

	drops := NewDetector(conf.FrameDropSettings{}).Detect(samples, videoStart)
	for _, d := range drops {
		assert.NotEqual(t, 8, d.Index)
	}
}

func TestDetectNoDropsWithinTwiceMedian(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 11))
	for range 200 {
		n := 10 + rng.IntN(60)
		base := 2 + rng.Float64()*40
		samples := make([]track.Sample, n)
		var x, utc float64
		for i := range samples {
			if i > 0 {
				// Every segment stays within 1.5× of every other.
				x += base * (1 + 0.5*rng.Float64())
				utc += 0.04
			}
			samples[i] = track.Sample{X: x, Y: x / 3, UTC: videoStart + utc}
		}
		assert.Empty(t, NewDetector(conf.FrameDropSettings{}).Detect(samples, videoStart))
	}
}

func TestValue(t *testing.T) {
	t.Parallel()

	v, err := Value([]Drop{{Index: 15, BreakUTC: videoStart + 0.6, VideoTime: 0.6, PixelDistance: 20}})
	require.NoError(t, err)
	raw, ok := v.AsString()
	require.True(t, ok)

	var rows [][4]float64
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	require.Len(t, rows, 1)
	assert.InDelta(t, 15, rows[0][0], 0)
	assert.InDelta(t, 20, rows[0][3], 0)

	v, err = Value(nil)
	require.NoError(t, err)
	raw, _ = v.AsString()
	assert.Equal(t, "[]", raw)
}
