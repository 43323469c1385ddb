// Package projection maps between sky coordinates and camera pixels: rotations,
// tangent-plane reduction, great-circle distance, position angle and the gnomonic
// projection with a radial barrel-distortion polynomial.
//
// All angles are radians.
package projection

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RotateXY rotates v by theta about the z axis.
func RotateXY(v r3.Vec, theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c, Z: v.Z}
}

// RotateXZ rotates v by theta about the y axis, turning x towards z.
func RotateXZ(v r3.Vec, theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Vec{X: v.X*c - v.Z*s, Y: v.Y, Z: v.X*s + v.Z*c}
}

// UnitVector returns the direction of (ra, dec) on the celestial sphere.
func UnitVector(ra, dec float64) r3.Vec {
	sr, cr := math.Sincos(ra)
	sd, cd := math.Sincos(dec)
	return r3.Vec{X: cd * cr, Y: cd * sr, Z: sd}
}

// MakeZenithal rotates the sphere so (ra0, dec0) sits at the pole and returns the
// angular distance of (ra, dec) from it and its position angle, measured from north
// through east.
func MakeZenithal(ra, dec, ra0, dec0 float64) (zenithAngle, azimuth float64) {
	v := RotateXZ(RotateXY(UnitVector(ra, dec), -ra0), math.Pi/2-dec0)
	zenithAngle = math.Acos(clamp(v.Z))
	azimuth = math.Atan2(v.Y, -v.X)
	return zenithAngle, azimuth
}

// FromZenithal is the inverse of MakeZenithal.
func FromZenithal(zenithAngle, azimuth, ra0, dec0 float64) (ra, dec float64) {
	sz, cz := math.Sincos(zenithAngle)
	sa, ca := math.Sincos(azimuth)
	v := r3.Vec{X: -sz * ca, Y: sz * sa, Z: cz}
	v = RotateXY(RotateXZ(v, -(math.Pi/2-dec0)), ra0)
	return WrapRA(math.Atan2(v.Y, v.X)), math.Asin(clamp(v.Z))
}

// AngDist returns the great-circle distance between two points. It works from the
// chord length so it stays accurate for small separations.
func AngDist(ra0, dec0, ra1, dec1 float64) float64 {
	chord := r3.Norm(r3.Sub(UnitVector(ra0, dec0), UnitVector(ra1, dec1)))
	return 2 * math.Asin(math.Min(1, chord/2))
}

// PositionAngle returns the position angle of (ra1, dec1) as seen from (ra0, dec0),
// measured from north through east.
func PositionAngle(ra0, dec0, ra1, dec1 float64) float64 {
	dra := ra1 - ra0
	return math.Atan2(
		math.Sin(dra)*math.Cos(dec1),
		math.Cos(dec0)*math.Sin(dec1)-math.Sin(dec0)*math.Cos(dec1)*math.Cos(dra),
	)
}

// WrapRA wraps an angle into [0, 2π).
func WrapRA(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
