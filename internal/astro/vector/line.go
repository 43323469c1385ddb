package vector

import (
	"math"

	"github.com/tphakala/skyarchive/internal/astro/fit"
)

// parallelTolerance is the squared sine of the angle below which two lines are
// treated as parallel.
const parallelTolerance = 1e-18

// Line is the set of points X0 + λ·Dir.
type Line struct {
	X0  Point
	Dir Vector
}

// Point returns X0 + λ·Dir.
func (l Line) Point(lambda float64) Point {
	return l.X0.Add(l.Dir.Scale(lambda))
}

// Approach describes the closest approach of two lines.
type Approach struct {
	SelfPoint  Point
	OtherPoint Point
	Separation float64
	// AngularDistance is the angle, seen from the first line's X0, between its
	// direction and OtherPoint.
	AngularDistance float64
}

// ClosestApproach finds the points of closest approach between l and other.
func (l Line) ClosestApproach(other Line) Approach {
	u, v := l.Dir, other.Dir
	w0 := l.X0.Sub(other.X0)

	a, b, c := u.Dot(u), u.Dot(v), v.Dot(v)
	d, e := u.Dot(w0), v.Dot(w0)
	denom := a*c - b*b

	var sc, tc float64
	if denom > parallelTolerance*a*c {
		sc = (b*e - c*d) / denom
		tc = (a*e - b*d) / denom
	} else {
		tc = parallelFoot(l.X0, other)
	}

	p, q := l.Point(sc), other.Point(tc)
	return Approach{
		SelfPoint:       p,
		OtherPoint:      q,
		Separation:      p.DistanceTo(q),
		AngularDistance: u.AngleWith(q.Sub(l.X0)),
	}
}

// parallelFoot finds the parameter on other closest to p. Lines this close to
// parallel leave the two-parameter system singular, so the one remaining parameter
// is found numerically.
func parallelFoot(p Point, other Line) float64 {
	dist := func(t float64) float64 {
		return p.Sub(other.Point(t)).Abs()
	}

	scale := other.Dir.Abs()
	if scale == 0 {
		return 0
	}
	guess := p.Sub(other.X0).Dot(other.Dir) / (scale * scale)
	t, _, err := fit.Minimize1D(dist, guess, fit.Options{Step: 1 / scale, Tolerance: 1e-9, Restarts: 1})
	if err != nil {
		return guess
	}
	return t
}

// Plane is the set of points x with Normal·x = P.
type Plane struct {
	Normal Vector
	P      float64
}

// PlaneThrough returns the plane through p containing directions a and b.
func PlaneThrough(p Point, a, b Vector) Plane {
	n := a.Cross(b).Unit()
	return Plane{Normal: n, P: n.Dot(p.Vector())}
}

// Distance returns the signed distance of q from the plane, for a unit normal.
func (pl Plane) Distance(q Point) float64 {
	return pl.Normal.Dot(q.Vector()) - pl.P
}

// LineOfIntersection returns the line shared by two planes. ok is false when the
// planes are parallel.
func (pl Plane) LineOfIntersection(other Plane) (Line, bool) {
	dir := pl.Normal.Cross(other.Normal)
	det := dir.Dot(dir)
	if det < 1e-24 || math.IsNaN(det) {
		return Line{}, false
	}

	n1, n2 := pl.Normal, other.Normal
	d11, d12, d22 := n1.Dot(n1), n1.Dot(n2), n2.Dot(n2)
	c1 := (pl.P*d22 - other.P*d12) / det
	c2 := (other.P*d11 - pl.P*d12) / det

	x0 := Point(n1.Scale(c1).Add(n2.Scale(c2)))
	return Line{X0: x0, Dir: dir.Unit()}, true
}
