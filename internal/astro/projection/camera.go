package projection

import (
	"math"

	"github.com/tphakala/skyarchive/internal/astro/fit"
)

// Camera is a calibrated view of the sky: field centre, pixel grid, angular size,
// roll and radial distortion.
//
// The distortion maps the normalised tangent-plane radius r (tan of the angle from
// the centre, divided by tan(FovX/2)) to r·(K0 + K1·r² + K2·r⁴ + K3·r⁶) with
// K0 = 1 − K1 − K2 − K3, so the horizontal frame edge is fixed.
type Camera struct {
	RA, Dec       float64 // field centre
	Width, Height float64 // pixels
	FovX, FovY    float64 // full angular width and height
	PosAng        float64 // position angle of the image's up direction, north through east
	K1, K2, K3    float64
}

const newtonIterations = 50

// K0 is the linear distortion term.
func (c Camera) K0() float64 {
	return 1 - c.K1 - c.K2 - c.K3
}

func (c Camera) distort(r float64) float64 {
	r2 := r * r
	return r * (c.K0() + r2*(c.K1+r2*(c.K2+r2*c.K3)))
}

func (c Camera) distortSlope(r float64) float64 {
	r2 := r * r
	return c.K0() + r2*(3*c.K1+r2*(5*c.K2+r2*7*c.K3))
}

// Project returns the pixel position of (ra, dec). ok is false when the point is
// more than 90° from the field centre and has no tangent-plane image.
func (c Camera) Project(ra, dec float64) (x, y float64, ok bool) {
	za, pa := MakeZenithal(ra, dec, c.RA, c.Dec)
	if za >= math.Pi/2 {
		return 0, 0, false
	}

	a := math.Tan(c.FovX / 2)
	b := math.Tan(c.FovY / 2)

	rd := c.distort(math.Tan(za)/a) * a
	s, co := math.Sincos(pa - c.PosAng)

	x = c.Width/2 - (c.Width/2)*rd*s/a
	y = c.Height/2 - (c.Height/2)*rd*co/b
	return x, y, true
}

// Unproject returns the sky position seen at pixel (x, y). The radial distortion is
// inverted by Newton iteration; if that fails to converge the pixel residual is
// minimised with a simplex seeded by the undistorted solution.
func (c Camera) Unproject(x, y float64) (ra, dec float64) {
	a := math.Tan(c.FovX / 2)
	b := math.Tan(c.FovY / 2)

	u := (c.Width/2 - x) / (c.Width / 2) * a
	v := (c.Height/2 - y) / (c.Height / 2) * b
	rd := math.Hypot(u, v) / a
	phi := math.Atan2(u, v)

	r, ok := c.undistort(rd)
	if ok {
		return FromZenithal(math.Atan(r*a), phi+c.PosAng, c.RA, c.Dec)
	}

	seedRA, seedDec := FromZenithal(math.Atan(rd*a), phi+c.PosAng, c.RA, c.Dec)
	return c.unprojectNumeric(x, y, seedRA, seedDec)
}

// undistort solves distort(r) = rd for r.
func (c Camera) undistort(rd float64) (float64, bool) {
	if rd == 0 {
		return 0, true
	}

	r := rd
	for range newtonIterations {
		slope := c.distortSlope(r)
		if slope <= 0 || math.IsNaN(slope) {
			return 0, false
		}
		step := (c.distort(r) - rd) / slope
		r -= step
		if r < 0 {
			return 0, false
		}
		if math.Abs(step) <= 1e-15*(1+r) {
			return r, true
		}
	}
	return 0, false
}

func (c Camera) unprojectNumeric(x, y, seedRA, seedDec float64) (float64, float64) {
	residual := func(p []float64) float64 {
		px, py, ok := c.Project(p[0], p[1])
		if !ok {
			return fit.Penalty
		}
		return (px-x)*(px-x) + (py-y)*(py-y)
	}

	res, err := fit.Minimize(residual, []float64{seedRA, seedDec}, fit.Options{
		Step:      1e-3,
		Tolerance: 1e-16,
		Restarts:  2,
	})
	if err != nil {
		return seedRA, seedDec
	}
	return WrapRA(res.X[0]), res.X[1]
}

// InFrame reports whether (x, y) lies on the pixel grid.
func (c Camera) InFrame(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= c.Width && y <= c.Height
}

// PixelScale returns the approximate angular size of one pixel at the field centre.
func (c Camera) PixelScale() float64 {
	return c.FovX / c.Width
}
