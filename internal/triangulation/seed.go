package triangulation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/skyarchive/internal/astro/vector"
)

// seedLine finds a first trajectory estimate. Each sight line is paired with
// the sight line from another station nearest to it in time, and the midpoints
// of their closest approaches are reduced to their principal axis. When that
// gives too little to work with, the two stations' planes of sight are
// intersected instead.
func seedLine(stations []station) (vector.Line, bool) {
	var mids []vector.Point
	for i, a := range stations {
		for j, b := range stations {
			if i == j {
				continue
			}
			for _, la := range a.lines {
				lb, ok := nearestInTime(b.lines, la.utc)
				if !ok {
					continue
				}
				ap := la.line.ClosestApproach(lb.line)
				mid := ap.SelfPoint.Add(ap.OtherPoint.Sub(ap.SelfPoint).Scale(0.5))
				// Ignore intersections behind either observer.
				if mid.Sub(la.line.X0).Dot(la.line.Dir) <= 0 || mid.Sub(lb.line.X0).Dot(lb.line.Dir) <= 0 {
					continue
				}
				mids = append(mids, mid)
			}
		}
	}

	if l, ok := principalAxis(mids); ok {
		return l, true
	}
	return planeIntersection(stations)
}

func nearestInTime(lines []sightLine, utc float64) (sightLine, bool) {
	best, bestDT := -1, math.Inf(1)
	for i, l := range lines {
		if dt := math.Abs(l.utc - utc); dt < bestDT {
			best, bestDT = i, dt
		}
	}
	if best < 0 {
		return sightLine{}, false
	}
	return lines[best], true
}

// principalAxis fits a line through points by the largest eigenvector of their
// scatter matrix.
func principalAxis(points []vector.Point) (vector.Line, bool) {
	if len(points) < 2 {
		return vector.Line{}, false
	}

	var c vector.Vector
	for _, p := range points {
		c = c.Add(p.Vector())
	}
	c = c.Div(float64(len(points)))

	scatter := mat.NewSymDense(3, nil)
	for _, p := range points {
		d := p.Vector().Sub(c)
		x := [3]float64{d.X, d.Y, d.Z}
		for i := range 3 {
			for j := i; j < 3; j++ {
				scatter.SetSym(i, j, scatter.At(i, j)+x[i]*x[j])
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(scatter, true) {
		return vector.Line{}, false
	}
	values := eig.Values(nil)
	// The spread along the axis must dominate the spread across it.
	if values[2] <= 0 || values[1] > 0.25*values[2] {
		return vector.Line{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	dir := vector.Vector{X: vecs.At(0, 2), Y: vecs.At(1, 2), Z: vecs.At(2, 2)}

	return vector.Line{X0: vector.Point(c), Dir: dir.Unit()}, true
}

// planeIntersection intersects the planes of sight of the two stations whose
// planes are furthest from parallel.
func planeIntersection(stations []station) (vector.Line, bool) {
	planes := make([]vector.Plane, 0, len(stations))
	for _, s := range stations {
		if p, ok := planeOfSight(s.lines); ok {
			planes = append(planes, p)
		}
	}

	var best vector.Line
	var found bool
	bestSin := 0.0
	for i := range planes {
		for j := i + 1; j < len(planes); j++ {
			sin := planes[i].Normal.Cross(planes[j].Normal).Abs()
			if sin <= bestSin {
				continue
			}
			if l, ok := planes[i].LineOfIntersection(planes[j]); ok {
				best, bestSin, found = l, sin, true
			}
		}
	}
	return best, found
}

// planeOfSight is the plane through a station's mean position that best
// contains all of its sight lines.
func planeOfSight(lines []sightLine) (vector.Plane, bool) {
	if len(lines) < 2 {
		return vector.Plane{}, false
	}
	first, last := lines[0].line, lines[len(lines)-1].line
	var origin vector.Vector
	for _, l := range lines {
		origin = origin.Add(l.line.X0.Vector())
	}
	origin = origin.Div(float64(len(lines)))

	n := first.Dir.Cross(last.Dir)
	if n.Abs() < 1e-9 {
		return vector.Plane{}, false
	}
	return vector.PlaneThrough(vector.Point(origin), first.Dir, last.Dir), true
}
