// Package triangulation fits straight-line trajectories to moving objects seen
// from two or more observatories at once.
//
// Every sample of every member observation contributes one sight line in the
// non-rotating geocentric frame at the sample's own instant, so the fitted line
// describes the object's motion independent of the Earth's rotation. The fit
// minimises the summed angle by which each sight line misses the trajectory.
package triangulation

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/fit"
	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/track"
)

const deg = math.Pi / 180

// Group states.
const (
	StatusPending           = "pending"
	StatusFitAttempted      = "fit_attempted"
	StatusAccepted          = "fit_accepted"
	StatusInsufficientLines = "rejected_insufficient_lines"
	StatusHighMismatch      = "rejected_high_mismatch"
)

// Fit parameters are offsets from the seed line: two positions in km and two
// direction angles in degrees.
const (
	metresPerParam = 1000.0
	fitStep        = 0.5
	fitRestarts    = 3
	minDuration    = 1e-3 // seconds of track needed for a speed
)

// Station is one member observation of a group.
type Station struct {
	ObservationID string
	ObservatoryID string
	SightLines    []track.SightLine
}

// Position is the fitted object position for one sample.
type Position struct {
	ObservationID string
	ObservatoryID string
	Index         int
	UTC           float64

	RA, Dec float64 // direction from the observer to the fitted point
	Alt, Az float64

	// Where the fitted point is over the rotating Earth.
	Latitude, Longitude, AltitudeM float64

	DistanceM   float64
	AngMismatch float64 // degrees between the sight line and the fitted point

	point vector.Point
}

// Solution is the outcome of one triangulation.
type Solution struct {
	Status         string
	Trajectory     vector.Line
	Positions      []Position // in time order
	SightLineCount int

	GeocentreSpeed   float64 // m/s in the non-rotating frame
	ObserverSpeed    float64 // m/s relative to the ground
	GeocentreHeading track.SkyPos
	ObserverHeading  track.SkyPos
	Radiant          track.SkyPos

	MeanAltitude     float64 // metres
	MaxAngularOffset float64 // degrees
	MaxBaseline      float64 // metres
	Evaluations      int
}

// Triangulator fits trajectories.
type Triangulator struct {
	settings conf.TriangulationSettings
	log      logger.Logger
}

// NewTriangulator returns a triangulator. Zero settings take six sight lines
// and a 7° mismatch limit.
func NewTriangulator(settings conf.TriangulationSettings) *Triangulator {
	if settings.MinSightLines <= 0 {
		settings.MinSightLines = 6
	}
	if settings.MaxMismatch <= 0 {
		settings.MaxMismatch = 7
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = 1e-12
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = 100_000
	}
	return &Triangulator{settings: settings, log: logger.Global().Module("triangulation")}
}

type sightLine struct {
	src  track.SightLine
	utc  float64
	line vector.Line
}

type station struct {
	Station
	lines []sightLine
}

// Triangulate fits one trajectory to every sight line of the group. A rejected
// group returns its Solution, carrying the rejection status, alongside the
// error.
func (tr *Triangulator) Triangulate(stations []Station) (*Solution, error) {
	sol := &Solution{Status: StatusPending}

	var all []sightLine
	prepared := make([]station, 0, len(stations))
	sites := make(map[string]vector.Point)
	for _, s := range stations {
		st := station{Station: s}
		for _, sl := range s.SightLines {
			l := sightLine{src: sl, utc: sl.UTC, line: sl.Celestial()}
			st.lines = append(st.lines, l)
			all = append(all, l)
			sites[s.ObservatoryID] = vector.FromLatLng(sl.Latitude, sl.Longitude, sl.AltitudeM)
		}
		if len(st.lines) > 0 {
			prepared = append(prepared, st)
		}
	}
	sol.SightLineCount = len(all)
	sol.MaxBaseline = maxBaseline(sites)

	if len(all) < tr.settings.MinSightLines || len(sites) < 2 {
		sol.Status = StatusInsufficientLines
		return sol, errors.Newf("%d sight lines from %d observatories, need %d from 2",
			len(all), len(sites), tr.settings.MinSightLines).
			Component("triangulation").
			Category(errors.CategoryValidation).
			Build()
	}

	seed, ok := seedLine(prepared)
	if !ok {
		sol.Status = StatusInsufficientLines
		return sol, errors.Newf("sight lines do not converge on a trajectory").
			Component("triangulation").
			Category(errors.CategoryFitRejected).
			Build()
	}

	sol.Status = StatusFitAttempted
	u, v := perpendiculars(seed.Dir)
	trajectory := func(p []float64) vector.Line {
		x0 := seed.X0.Add(u.Scale(p[0] * metresPerParam)).Add(v.Scale(p[1] * metresPerParam))
		a, b := p[2]*deg, p[3]*deg
		dir := seed.Dir.Scale(math.Cos(a) * math.Cos(b)).
			Add(u.Scale(math.Sin(a) * math.Cos(b))).
			Add(v.Scale(math.Sin(b)))
		return vector.Line{X0: x0, Dir: dir}
	}

	objective := fit.Guard(func(p []float64) float64 {
		traj := trajectory(p)
		var sum float64
		for _, l := range all {
			sum += l.line.ClosestApproach(traj).AngularDistance
		}
		return sum
	})

	res, err := fit.Minimize(objective, make([]float64, 4), fit.Options{
		Step:          fitStep,
		Tolerance:     tr.settings.Tolerance,
		MaxIterations: tr.settings.MaxIterations,
		Restarts:      fitRestarts,
	})
	if err != nil {
		return sol, errors.New(err).
			Component("triangulation").
			Category(errors.CategoryOptimizer).
			Build()
	}
	sol.Evaluations = res.Evaluations
	sol.Trajectory = trajectory(res.X)

	tr.positions(sol, all)
	if sol.MaxAngularOffset > tr.settings.MaxMismatch {
		sol.Status = StatusHighMismatch
		return sol, errors.Newf("worst sight line misses the trajectory by %.2f°", sol.MaxAngularOffset).
			Component("triangulation").
			Category(errors.CategoryFitRejected).
			Context("max_mismatch", tr.settings.MaxMismatch).
			Build()
	}

	tr.velocities(sol, prepared)
	sol.Status = StatusAccepted
	tr.log.Debug("trajectory fitted",
		logger.Int("sight_lines", sol.SightLineCount),
		logger.Float64("speed_ms", sol.GeocentreSpeed),
		logger.Float64("max_offset_deg", sol.MaxAngularOffset),
		logger.Int("evaluations", sol.Evaluations))
	return sol, nil
}

// positions places every sample at the trajectory's closest approach to its
// sight line.
func (tr *Triangulator) positions(sol *Solution, all []sightLine) {
	sol.Positions = make([]Position, 0, len(all))
	var altSum float64
	for _, l := range all {
		ap := l.line.ClosestApproach(sol.Trajectory)
		obj := ap.OtherPoint
		look := obj.Sub(l.line.X0)
		ra, dec := look.ToRaDec()
		alt, az := ephemeris.AltAz(ra, dec, l.utc, l.src.Latitude, l.src.Longitude)
		lat, lng, altM := obj.ToLatLngAt(l.utc)

		p := Position{
			ObservationID: l.src.ObservationID,
			ObservatoryID: l.src.ObservatoryID,
			Index:         l.src.Index,
			UTC:           l.utc,
			RA:            ra,
			Dec:           dec,
			Alt:           alt,
			Az:            az,
			Latitude:      lat,
			Longitude:     lng,
			AltitudeM:     altM,
			DistanceM:     look.Abs(),
			AngMismatch:   ap.AngularDistance / deg,
			point:         obj,
		}
		sol.Positions = append(sol.Positions, p)
		altSum += altM
		sol.MaxAngularOffset = max(sol.MaxAngularOffset, p.AngMismatch)
	}
	slices.SortStableFunc(sol.Positions, func(a, b Position) int { return cmp.Compare(a.UTC, b.UTC) })
	sol.MeanAltitude = altSum / float64(len(all))
}

// velocities regresses distance along the trajectory against time. The
// displacement between the first and last samples of that fit gives the
// geocentric velocity; removing the first observatory's own motion over the
// same interval gives the velocity relative to the ground.
func (tr *Triangulator) velocities(sol *Solution, stations []station) {
	traj := sol.Trajectory
	t0 := sol.Positions[0].UTC
	t1 := sol.Positions[len(sol.Positions)-1].UTC

	ts := make([]float64, len(sol.Positions))
	along := make([]float64, len(sol.Positions))
	for i, p := range sol.Positions {
		ts[i] = p.UTC - t0
		along[i] = p.point.Sub(traj.X0).Dot(traj.Dir)
	}

	span := t1 - t0
	if span < minDuration {
		return
	}
	_, rate := stat.LinearRegression(ts, along, nil, false)
	velocity := traj.Dir.Scale(rate)

	site := stations[0].lines[0].src
	from := vector.FromLatLngAt(site.Latitude, site.Longitude, site.AltitudeM, t0)
	to := vector.FromLatLngAt(site.Latitude, site.Longitude, site.AltitudeM, t1)
	ground := velocity.Sub(to.Sub(from).Div(span))

	sol.GeocentreSpeed = velocity.Abs()
	sol.ObserverSpeed = ground.Abs()
	sol.GeocentreHeading = skyPos(velocity)
	sol.ObserverHeading = skyPos(ground)
	sol.Radiant = skyPos(velocity.Scale(-1))
}

func skyPos(v vector.Vector) track.SkyPos {
	ra, dec := v.ToRaDec()
	return track.SkyPos{RA: ra, Dec: dec}
}

// perpendiculars returns two unit vectors completing dir to a right-handed
// basis.
func perpendiculars(dir vector.Vector) (vector.Vector, vector.Vector) {
	ref := vector.Vector{Z: 1}
	if math.Abs(dir.Unit().Dot(ref)) > 0.9 {
		ref = vector.Vector{X: 1}
	}
	u := dir.Cross(ref).Unit()
	return u, dir.Cross(u).Unit()
}

func maxBaseline(sites map[string]vector.Point) float64 {
	points := make([]vector.Point, 0, len(sites))
	for _, p := range sites {
		points = append(points, p)
	}
	var best float64
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			best = max(best, points[i].DistanceTo(points[j]))
		}
	}
	return best
}
