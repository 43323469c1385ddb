package refdata

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antonholmquist/jason"
)

// CameraModel describes a sensor.
type CameraModel struct {
	Name       string
	Width      int // pixels
	Height     int // pixels
	FPS        float64
	UpsideDown bool
	Type       string
}

// LensModel is a lens's nominal horizontal field of view and default radial
// distortion coefficients.
type LensModel struct {
	Name   string
	FoV    float64 // degrees, horizontal
	Barrel [3]float64
}

type xmlCameras struct {
	Cameras []struct {
		Name       string  `xml:"name"`
		Width      int     `xml:"width"`
		Height     int     `xml:"height"`
		FPS        float64 `xml:"fps"`
		UpsideDown string  `xml:"upside_down"`
		Type       string  `xml:"camera_type"`
	} `xml:"camera"`
}

// ParseCameras reads a cameras.xml list keyed by name.
func ParseCameras(r io.Reader) (map[string]CameraModel, error) {
	var doc xmlCameras
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode cameras: %w", err)
	}

	out := make(map[string]CameraModel, len(doc.Cameras))
	for _, c := range doc.Cameras {
		name := strings.TrimSpace(c.Name)
		if name == "" || c.Width <= 0 || c.Height <= 0 {
			return nil, fmt.Errorf("camera %q: name and positive pixel dimensions are required", name)
		}
		out[name] = CameraModel{
			Name:       name,
			Width:      c.Width,
			Height:     c.Height,
			FPS:        c.FPS,
			UpsideDown: parseFlag(c.UpsideDown),
			Type:       strings.TrimSpace(c.Type),
		}
	}
	return out, nil
}

type xmlLenses struct {
	Lenses []struct {
		Name             string  `xml:"name"`
		FoV              float64 `xml:"fov"`
		RadialDistortion string  `xml:"radial_distortion"`
	} `xml:"lens"`
}

// ParseLenses reads a lenses.xml list keyed by name. radial_distortion is a
// JSON list of up to three coefficients [K1, K2, K3].
func ParseLenses(r io.Reader) (map[string]LensModel, error) {
	var doc xmlLenses
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode lenses: %w", err)
	}

	out := make(map[string]LensModel, len(doc.Lenses))
	for _, l := range doc.Lenses {
		name := strings.TrimSpace(l.Name)
		if name == "" || l.FoV <= 0 {
			return nil, fmt.Errorf("lens %q: name and positive field of view are required", name)
		}
		barrel, err := ParseBarrel(l.RadialDistortion)
		if err != nil {
			return nil, fmt.Errorf("lens %q: %w", name, err)
		}
		out[name] = LensModel{Name: name, FoV: l.FoV, Barrel: barrel}
	}
	return out, nil
}

// ParseBarrel decodes a JSON list of distortion coefficients. Missing trailing
// terms are zero; an empty string is no distortion.
func ParseBarrel(s string) ([3]float64, error) {
	var out [3]float64
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}

	v, err := jason.NewValueFromBytes([]byte(s))
	if err != nil {
		return out, fmt.Errorf("radial_distortion: %w", err)
	}
	items, err := v.Array()
	if err != nil {
		return out, fmt.Errorf("radial_distortion is not a list: %w", err)
	}
	if len(items) > len(out) {
		return out, fmt.Errorf("radial_distortion has %d terms, at most 3 allowed", len(items))
	}
	for i, item := range items {
		if out[i], err = item.Float64(); err != nil {
			return out, fmt.Errorf("radial_distortion[%d]: %w", i, err)
		}
	}
	return out, nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
