// Package calibration fits a camera's pointing, field of view and radial
// distortion to stars identified in a still image, and averages the per-image
// fits into a nightly orientation.
package calibration

import (
	"math"

	"github.com/tphakala/skyarchive/internal/astro/fit"
	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/errors"
)

const deg = math.Pi / 180

// offFramePenalty is added per star that projects with no image.
const offFramePenalty = 1e8

// Star is a catalogue star located on the image.
type Star struct {
	HIP  int
	X, Y float64 // pixels
	RA   float64 // hours, equinox of date
	Dec  float64 // degrees
}

// Residual is model minus observed position for one star, in pixels.
type Residual struct {
	HIP    int
	DX, DY float64
}

// Solution is a fitted camera. Angles are hours for RA and degrees otherwise.
type Solution struct {
	RA, Dec    float64
	FovX, FovY float64
	PosAng     float64 // position angle of the image's up direction, north through east
	K          [3]float64

	Residuals   []Residual
	ChiSquared  float64 // mean squared pixel residual
	PointCount  int
	Evaluations int
}

// FitQuality is the RMS pixel residual.
func (s *Solution) FitQuality() float64 {
	return math.Sqrt(s.ChiSquared)
}

// Params returns the eight fitted values [ra, dec, fov_x, fov_y, pos_ang, K1,
// K2, K3] in the order they are persisted.
func (s *Solution) Params() []float64 {
	return []float64{s.RA, s.Dec, s.FovX, s.FovY, s.PosAng, s.K[0], s.K[1], s.K[2]}
}

// Camera returns the projection model of the solution on a width×height grid.
func (s *Solution) Camera(width, height float64) projection.Camera {
	return projection.Camera{
		RA:     s.RA * 15 * deg,
		Dec:    s.Dec * deg,
		Width:  width,
		Height: height,
		FovX:   s.FovX * deg,
		FovY:   s.FovY * deg,
		PosAng: s.PosAng * deg,
		K1:     s.K[0],
		K2:     s.K[1],
		K3:     s.K[2],
	}
}

// Options bound the fit.
type Options struct {
	Guess         *Solution // starting point; nil starts at the first star with a 45° field
	MinStars      int
	MaxIterations int
	Tolerance     float64
}

// Scale of each parameter as the simplex sees it: ra, dec, fov_x, fov_y,
// pos_ang (radians), K1, K2, K3.
var paramScale = [8]float64{deg, deg, deg, deg, deg, 0.01, 0.01, 0.01}

func toParams(s *Solution) []float64 {
	raw := [8]float64{s.RA * 15 * deg, s.Dec * deg, s.FovX * deg, s.FovY * deg, s.PosAng * deg, s.K[0], s.K[1], s.K[2]}
	x := make([]float64, len(raw))
	for i := range raw {
		x[i] = raw[i] / paramScale[i]
	}
	return x
}

func cameraFromParams(x []float64, width, height float64) projection.Camera {
	return projection.Camera{
		RA:     x[0] * paramScale[0],
		Dec:    x[1] * paramScale[1],
		Width:  width,
		Height: height,
		FovX:   x[2] * paramScale[2],
		FovY:   x[3] * paramScale[3],
		PosAng: x[4] * paramScale[4],
		K1:     x[5] * paramScale[5],
		K2:     x[6] * paramScale[6],
		K3:     x[7] * paramScale[7],
	}
}

// Fit solves for the camera that best maps stars onto their pixel positions on
// a width×height image.
func Fit(stars []Star, width, height float64, opts Options) (*Solution, error) {
	if opts.MinStars <= 0 {
		opts.MinStars = 8
	}
	if len(stars) < opts.MinStars {
		return nil, errors.Newf("%d stars identified, need %d", len(stars), opts.MinStars).
			Component("calibration").
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 200_000
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-12
	}

	guess := opts.Guess
	if guess == nil {
		guess = &Solution{RA: stars[0].RA, Dec: stars[0].Dec, FovX: 45, FovY: 45}
	}

	objective := func(x []float64) float64 {
		cam := cameraFromParams(x, width, height)
		if cam.FovX <= 0 || cam.FovY <= 0 || cam.FovX >= math.Pi || cam.FovY >= math.Pi {
			return fit.Penalty
		}
		var sum float64
		for _, s := range stars {
			px, py, ok := cam.Project(s.RA*15*deg, s.Dec*deg)
			if !ok {
				sum += offFramePenalty
				continue
			}
			sum += (px-s.X)*(px-s.X) + (py-s.Y)*(py-s.Y)
		}
		return sum
	}

	res, err := fit.Minimize(objective, toParams(guess), fit.Options{
		Step:          1,
		Tolerance:     opts.Tolerance,
		MaxIterations: opts.MaxIterations,
		Restarts:      12,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("calibration").
			Category(errors.CategoryOptimizer).
			Context("stars", len(stars)).
			Build()
	}

	cam := cameraFromParams(res.X, width, height)
	sol := &Solution{
		RA:          projection.WrapRA(cam.RA) / deg / 15,
		Dec:         cam.Dec / deg,
		FovX:        cam.FovX / deg,
		FovY:        cam.FovY / deg,
		PosAng:      math.Remainder(cam.PosAng, 2*math.Pi) / deg,
		K:           [3]float64{cam.K1, cam.K2, cam.K3},
		PointCount:  len(stars),
		Evaluations: res.Evaluations,
	}
	sol.Residuals, sol.ChiSquared = residuals(cam, stars)
	return sol, nil
}

func residuals(cam projection.Camera, stars []Star) ([]Residual, float64) {
	out := make([]Residual, len(stars))
	var sum float64
	for i, s := range stars {
		px, py, ok := cam.Project(s.RA*15*deg, s.Dec*deg)
		if !ok {
			// a full frame away
			px, py = s.X+cam.Width, s.Y+cam.Height
		}
		out[i] = Residual{HIP: s.HIP, DX: px - s.X, DY: py - s.Y}
		sum += out[i].DX*out[i].DX + out[i].DY*out[i].DY
	}
	return out, sum / float64(len(stars))
}
