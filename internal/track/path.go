// Package track turns the pixel path of a moving-object observation into sky
// positions and sight lines.
package track

import (
	"fmt"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/skyarchive/internal/errors"
)

// Notifications attached to a parsed track.
const (
	NoteRescued = "rescued_record"
	NoteError   = "error_record"
)

// Sample is one detection of the object in the video.
type Sample struct {
	X, Y      float64 // pixels
	Intensity float64
	UTC       float64
}

// BezierPoint is a control point of the smoothed path.
type BezierPoint struct {
	X, Y float64
	UTC  float64
}

// ParsePath decodes a pixel path of [x, y, intensity, utc] elements. A
// truncated path is cut back to its last complete element and extended with the
// later Bezier control points; the returned notes then contain NoteRescued.
//
// Every returned path has at least two samples with non-decreasing times.
func ParsePath(pathJSON, bezierJSON string) ([]Sample, []string, error) {
	samples, err := decodeSamples(pathJSON)
	if err == nil {
		if err := checkSamples(samples); err != nil {
			return nil, []string{NoteError}, malformed(err)
		}
		return samples, nil, nil
	}

	samples, rescueErr := rescue(pathJSON, bezierJSON)
	if rescueErr == nil {
		rescueErr = checkSamples(samples)
	}
	if rescueErr != nil {
		return nil, []string{NoteError}, errors.New(rescueErr).
			Component("track").
			Category(errors.CategoryMalformedTrackJSON).
			Context("decode_error", err.Error()).
			Build()
	}
	return samples, []string{NoteRescued}, nil
}

func malformed(err error) error {
	return errors.New(err).
		Component("track").
		Category(errors.CategoryMalformedTrackJSON).
		Build()
}

// checkSamples enforces the shape every track relies on.
func checkSamples(samples []Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("path has %d samples, want at least 2", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].UTC < samples[i-1].UTC {
			return fmt.Errorf("sample %d at %.3f precedes sample %d at %.3f",
				i, samples[i].UTC, i-1, samples[i-1].UTC)
		}
	}
	return nil
}

func rescue(pathJSON, bezierJSON string) ([]Sample, error) {
	cut := strings.LastIndex(pathJSON, "]")
	if cut < 0 {
		return nil, errors.NewStd("path has no complete element")
	}
	samples, err := decodeSamples(pathJSON[:cut+1] + "]")
	if err != nil {
		return nil, fmt.Errorf("rescue path: %w", err)
	}

	bezier, err := ParseBezier(bezierJSON)
	if err != nil {
		return nil, fmt.Errorf("rescue path: %w", err)
	}
	for _, b := range bezier[1:] {
		if len(samples) > 0 && b.UTC <= samples[len(samples)-1].UTC {
			continue
		}
		samples = append(samples, Sample{X: b.X, Y: b.Y, UTC: b.UTC})
	}
	if len(samples) == 0 {
		return nil, errors.NewStd("rescued path is empty")
	}
	return samples, nil
}

func decodeSamples(s string) ([]Sample, error) {
	rows, err := numberRows(s, 4)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, len(rows))
	for i, r := range rows {
		out[i] = Sample{X: r[0], Y: r[1], Intensity: r[2], UTC: r[3]}
	}
	return out, nil
}

// ParseBezier decodes the three [x, y, utc] control points of a smoothed path.
func ParseBezier(s string) ([3]BezierPoint, error) {
	var out [3]BezierPoint
	rows, err := numberRows(s, 3)
	if err != nil {
		return out, err
	}
	if len(rows) != len(out) {
		return out, fmt.Errorf("bezier path has %d control points, want 3", len(rows))
	}
	for i, r := range rows {
		out[i] = BezierPoint{X: r[0], Y: r[1], UTC: r[2]}
	}
	return out, nil
}

// numberRows decodes a JSON list of numeric lists, each at least width long.
func numberRows(s string, width int) ([][]float64, error) {
	v, err := jason.NewValueFromBytes([]byte(s))
	if err != nil {
		return nil, err
	}
	items, err := v.Array()
	if err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(items))
	for i, item := range items {
		cols, err := item.Array()
		if err != nil || len(cols) < width {
			return nil, fmt.Errorf("element %d: want a list of %d numbers", i, width)
		}
		row := make([]float64, width)
		for j := range row {
			if row[j], err = cols[j].Float64(); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}
