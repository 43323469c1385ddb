// Package fit wraps the gonum Nelder-Mead simplex used by the calibrator, the
// triangulator, the satellite clock refinement and the projection fallback.
package fit

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/optimize"

	"github.com/tphakala/skyarchive/internal/errors"
)

// Penalty replaces NaN or infinite objective values so the simplex steps away from them.
const Penalty = 1e12

// Objective is a scalar function of the parameter vector.
type Objective func(x []float64) float64

// Options bound a minimisation. Zero values take the defaults below.
type Options struct {
	Step           float64 // initial simplex size, in parameter units
	Tolerance      float64 // absolute change in the objective treated as converged
	MaxIterations  int
	MaxEvaluations int
	Restarts       int // extra simplex restarts from the best point
}

// Result of a minimisation.
type Result struct {
	X           []float64
	F           float64
	Evaluations int
	Iterations  int
	Status      string
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = 0.1
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100_000
	}
	if o.MaxEvaluations <= 0 {
		o.MaxEvaluations = 4 * o.MaxIterations
	}
	if o.Restarts < 0 {
		o.Restarts = 0
	}
	return o
}

// Guard wraps f so non-finite values become Penalty.
func Guard(f Objective) Objective {
	return func(x []float64) float64 {
		v := f(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Penalty
		}
		return v
	}
}

// Minimize runs Nelder-Mead from x0. After the first run the simplex is rebuilt
// around the best point up to opts.Restarts times; it stops early once a restart
// no longer improves the objective by more than the tolerance.
func Minimize(f Objective, x0 []float64, opts Options) (*Result, error) {
	if len(x0) == 0 {
		return nil, errors.Newf("empty parameter vector").
			Category(errors.CategoryValidation).
			Build()
	}

	opts = opts.withDefaults()
	guarded := Guard(f)

	out := &Result{X: slices.Clone(x0), F: guarded(x0)}
	problem := optimize.Problem{Func: guarded}

	for attempt := 0; attempt <= opts.Restarts; attempt++ {
		settings := &optimize.Settings{
			MajorIterations: opts.MaxIterations - out.Iterations,
			FuncEvaluations: opts.MaxEvaluations - out.Evaluations,
			Converger: &optimize.FunctionConverge{
				Absolute:   opts.Tolerance,
				Iterations: 50 * (len(x0) + 1),
			},
		}
		if settings.MajorIterations <= 0 || settings.FuncEvaluations <= 0 {
			break
		}

		res, err := optimize.Minimize(problem, out.X, settings, &optimize.NelderMead{SimplexSize: opts.Step})
		if res == nil {
			return nil, errors.New(err).
				Category(errors.CategoryOptimizer).
				Context("dimension", len(x0)).
				Context("attempt", attempt).
				Build()
		}

		out.Evaluations += res.FuncEvaluations
		out.Iterations += res.MajorIterations
		out.Status = res.Status.String()

		improvement := out.F - res.F
		if res.F < out.F {
			out.X = slices.Clone(res.X)
			out.F = res.F
		}
		if attempt > 0 && improvement <= opts.Tolerance {
			break
		}
	}

	return out, nil
}

// Minimize1D minimises a scalar function of one variable starting at x0.
func Minimize1D(f func(x float64) float64, x0 float64, opts Options) (x, fx float64, err error) {
	res, err := Minimize(func(v []float64) float64 { return f(v[0]) }, []float64{x0}, opts)
	if err != nil {
		return 0, 0, err
	}
	return res.X[0], res.F, nil
}
