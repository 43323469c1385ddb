// Package vector provides the 3D geometry of sight lines and trajectories: points
// in metres from the Earth's centre, direction vectors, lines and planes.
//
// Two frames are used. Earth-fixed (ECEF) points come from FromLatLng; points in
// the non-rotating celestial frame at an instant come from FromLatLngAt, which
// turns the x axis to the RA = 0 meridian at that time.
package vector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
)

// EarthRadius is the radius of the spherical Earth model, in metres.
const EarthRadius = 6371000.0

const (
	deg  = math.Pi / 180
	hour = math.Pi / 12
)

// Vector is a direction or displacement.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) vec() r3.Vec            { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func fromR3(v r3.Vec) Vector            { return Vector{X: v.X, Y: v.Y, Z: v.Z} }
func (v Vector) Add(w Vector) Vector    { return fromR3(r3.Add(v.vec(), w.vec())) }
func (v Vector) Sub(w Vector) Vector    { return fromR3(r3.Sub(v.vec(), w.vec())) }
func (v Vector) Scale(f float64) Vector { return fromR3(r3.Scale(f, v.vec())) }
func (v Vector) Div(f float64) Vector   { return fromR3(r3.Scale(1/f, v.vec())) }
func (v Vector) Abs() float64           { return r3.Norm(v.vec()) }
func (v Vector) Dot(w Vector) float64   { return r3.Dot(v.vec(), w.vec()) }
func (v Vector) Cross(w Vector) Vector  { return fromR3(r3.Cross(v.vec(), w.vec())) }

// Unit returns v scaled to length one. The zero vector is returned unchanged.
func (v Vector) Unit() Vector {
	if n := v.Abs(); n > 0 {
		return v.Div(n)
	}
	return v
}

// AngleWith returns the angle between v and w in radians.
func (v Vector) AngleWith(w Vector) float64 {
	// atan2 of cross and dot is accurate at both small and large angles
	return math.Atan2(v.Cross(w).Abs(), v.Dot(w))
}

// FromRaDec returns the unit vector towards (raHours, decDeg).
func FromRaDec(raHours, decDeg float64) Vector {
	sr, cr := math.Sincos(raHours * hour)
	sd, cd := math.Sincos(decDeg * deg)
	return Vector{X: cd * cr, Y: cd * sr, Z: sd}
}

// ToRaDec returns the direction of v as (hours, degrees).
func (v Vector) ToRaDec() (raHours, decDeg float64) {
	n := v.Abs()
	if n == 0 {
		return 0, 0
	}
	ra := math.Atan2(v.Y, v.X) / hour
	if ra < 0 {
		ra += 24
	}
	return ra, math.Asin(math.Max(-1, math.Min(1, v.Z/n))) / deg
}

// RotateZ rotates v about the polar axis by theta radians.
func (v Vector) RotateZ(theta float64) Vector {
	s, c := math.Sincos(theta)
	return Vector{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c, Z: v.Z}
}

// Point is a position in metres from the Earth's centre.
type Point struct {
	X, Y, Z float64
}

func (p Point) Add(v Vector) Point         { return Point{p.X + v.X, p.Y + v.Y, p.Z + v.Z} }
func (p Point) Sub(q Point) Vector         { return Vector{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p Point) Vector() Vector             { return Vector(p) }
func (p Point) DistanceTo(q Point) float64 { return p.Sub(q).Abs() }

// RotateZ rotates p about the polar axis by theta radians.
func (p Point) RotateZ(theta float64) Point {
	return Point(Vector(p).RotateZ(theta))
}

// FromLatLng returns the Earth-fixed position of a geographic location.
func FromLatLng(latDeg, lngDeg, altM float64) Point {
	r := EarthRadius + altM
	sl, cl := math.Sincos(latDeg * deg)
	sg, cg := math.Sincos(lngDeg * deg)
	return Point{X: r * cl * cg, Y: r * cl * sg, Z: r * sl}
}

// ToLatLng is the inverse of FromLatLng.
func (p Point) ToLatLng() (latDeg, lngDeg, altM float64) {
	r := Vector(p).Abs()
	if r == 0 {
		return 0, 0, -EarthRadius
	}
	lat := math.Asin(math.Max(-1, math.Min(1, p.Z/r)))
	lng := math.Atan2(p.Y, p.X)
	return lat / deg, lng / deg, r - EarthRadius
}

// FromLatLngAt returns a geographic location in the celestial frame at utc: the
// Earth-fixed position rotated by Greenwich sidereal time.
func FromLatLngAt(latDeg, lngDeg, altM, utc float64) Point {
	return FromLatLng(latDeg, lngDeg, altM).RotateZ(ephemeris.SiderealTime(utc) * hour)
}

// ToLatLngAt is the inverse of FromLatLngAt.
func (p Point) ToLatLngAt(utc float64) (latDeg, lngDeg, altM float64) {
	return p.RotateZ(-ephemeris.SiderealTime(utc) * hour).ToLatLng()
}
