// Package framedrop finds places in a moving-object track where the camera
// skipped frames: a jump much longer than the object's local pace.
package framedrop

import (
	"math"
	"slices"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/metadata"
	"github.com/tphakala/skyarchive/internal/track"
)

// Drop marks the segment ending at sample Index.
type Drop struct {
	Index         int
	BreakUTC      float64
	VideoTime     float64 // seconds since the start of the video
	PixelDistance float64
}

// Detector applies the windowed median test.
type Detector struct {
	settings conf.FrameDropSettings
}

// NewDetector returns a detector. Zero settings take a ±4 segment window,
// 16 px and 4× the local median speed.
func NewDetector(settings conf.FrameDropSettings) *Detector {
	if settings.Window <= 0 {
		settings.Window = 4
	}
	if settings.MinDistance <= 0 {
		settings.MinDistance = 16
	}
	if settings.Factor <= 0 {
		settings.Factor = 4
	}
	return &Detector{settings: settings}
}

type segment struct {
	end      int
	distance float64
	speed    float64
}

// Detect returns the drops in samples, a track whose video began at
// videoStart. A segment is a drop when it is both longer than the minimum
// distance and faster than factor times the median speed of the segments
// around it.
func (d *Detector) Detect(samples []track.Sample, videoStart float64) []Drop {
	var segs []segment
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		dt := b.UTC - a.UTC
		if dt <= 0 {
			continue
		}
		dist := math.Hypot(b.X-a.X, b.Y-a.Y)
		segs = append(segs, segment{end: i, distance: dist, speed: dist / dt})
	}

	var out []Drop
	w := d.settings.Window
	for i, s := range segs {
		if s.distance <= d.settings.MinDistance {
			continue
		}
		lo, hi := max(0, i-w), min(len(segs), i+w+1)
		if s.speed <= d.settings.Factor*medianSpeed(segs[lo:hi]) {
			continue
		}
		utc := samples[s.end].UTC
		out = append(out, Drop{
			Index:         s.end,
			BreakUTC:      utc,
			VideoTime:     utc - videoStart,
			PixelDistance: s.distance,
		})
	}
	return out
}

func medianSpeed(segs []segment) float64 {
	speeds := make([]float64, len(segs))
	for i, s := range segs {
		speeds[i] = s.speed
	}
	slices.Sort(speeds)
	n := len(speeds)
	if n%2 == 1 {
		return speeds[n/2]
	}
	return (speeds[n/2-1] + speeds[n/2]) / 2
}

// Value renders drops as the JSON list of [index, break_utc, video_time_sec,
// pixel_distance] stored under frame_drop:list.
func Value(drops []Drop) (metadata.Value, error) {
	rows := make([][4]float64, len(drops))
	for i, d := range drops {
		rows[i] = [4]float64{float64(d.Index), d.BreakUTC, d.VideoTime, d.PixelDistance}
	}
	return metadata.JSON(rows)
}
