package ephemeris

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/solar"
)

const (
	deg   = math.Pi / 180
	hour  = math.Pi / 12
	asec  = deg / 3600
	poleE = 1e-7
)

// SunPos returns the Sun's apparent right ascension (hours) and declination (degrees).
func SunPos(utc float64) (raHours, decDeg float64) {
	ra, dec := solar.ApparentEquatorial(UnixToJD(utc))
	return wrapHours(ra.Hour()), dec.Deg()
}

// SolarLongitude returns the Sun's apparent ecliptic longitude in degrees, in [0, 360).
func SolarLongitude(utc float64) float64 {
	return wrapDegrees(solar.ApparentLongitude(base.J2000Century(UnixToJD(utc))).Deg())
}

// AltAz converts equatorial coordinates to topocentric altitude and azimuth, both in
// degrees. Azimuth is measured from north through east.
func AltAz(raHours, decDeg, utc, latDeg, lngDeg float64) (altDeg, azDeg float64) {
	ha := (LocalSiderealTime(utc, lngDeg) - raHours) * hour
	dec := decDeg * deg
	lat := latDeg * deg

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt))

	if math.Abs(math.Cos(alt)) < poleE {
		return alt / deg, 0
	}

	az := math.Atan2(
		-math.Cos(dec)*math.Sin(ha),
		math.Sin(dec)*math.Cos(lat)-math.Cos(dec)*math.Sin(lat)*math.Cos(ha),
	)
	return alt / deg, wrapDegrees(az / deg)
}

// RaDec converts topocentric altitude and azimuth (degrees) to right ascension
// (hours) and declination (degrees) at the given time.
func RaDec(altDeg, azDeg, utc, latDeg, lngDeg float64) (raHours, decDeg float64) {
	alt := altDeg * deg
	az := azDeg * deg
	lat := latDeg * deg

	sinDec := math.Sin(alt)*math.Sin(lat) + math.Cos(alt)*math.Cos(lat)*math.Cos(az)
	dec := math.Asin(clamp(sinDec))

	if math.Abs(math.Cos(dec)) < poleE {
		return 0, dec / deg
	}

	ha := math.Atan2(
		-math.Cos(alt)*math.Sin(az),
		math.Sin(alt)*math.Cos(lat)-math.Cos(alt)*math.Sin(lat)*math.Cos(az),
	)
	return wrapHours(LocalSiderealTime(utc, lngDeg) - ha/hour), dec / deg
}

// ZenithPosition returns the right ascension (hours) and declination (degrees) of the zenith.
func ZenithPosition(latDeg, lngDeg, utc float64) (raHours, decDeg float64) {
	return LocalSiderealTime(utc, lngDeg), latDeg
}

// RiseCulmSet returns the next culmination after utc of an object at (raHours, decDeg)
// and the rise and set times either side of it, for a horizon depressed by
// depressionDeg. ok is false when the object never crosses that horizon.
func RiseCulmSet(utc, raHours, decDeg, latDeg, lngDeg, depressionDeg float64) (rise, culm, set float64, ok bool) {
	untilCulm := wrapHours(raHours - LocalSiderealTime(utc, lngDeg))
	culm = utc + untilCulm*3600/SiderealRate

	lat := latDeg * deg
	dec := decDeg * deg
	cosH0 := (math.Sin(-depressionDeg*deg) - math.Sin(lat)*math.Sin(dec)) / (math.Cos(lat) * math.Cos(dec))
	if math.IsNaN(cosH0) || cosH0 > 1 || cosH0 < -1 {
		return 0, 0, 0, false
	}

	halfArc := math.Acos(cosH0) / hour * 3600 / SiderealRate
	return culm - halfArc, culm, culm + halfArc, true
}

// Precess moves mean equatorial coordinates between two epochs given as Julian days,
// using the rigorous zeta, z, theta rotation of Meeus chapter 21.
func Precess(raHours, decDeg, jdFrom, jdTo float64) (float64, float64) {
	bigT := (jdFrom - J2000) / 36525
	t := (jdTo - jdFrom) / 36525

	rate := 2306.2181 + 1.39656*bigT - 0.000139*bigT*bigT
	zeta := (rate*t + (0.30188-0.000344*bigT)*t*t + 0.017998*t*t*t) * asec
	z := (rate*t + (1.09468+0.000066*bigT)*t*t + 0.018203*t*t*t) * asec
	theta := ((2004.3109-0.85330*bigT-0.000217*bigT*bigT)*t - (0.42665+0.000217*bigT)*t*t - 0.041833*t*t*t) * asec

	ra := raHours * hour
	dec := decDeg * deg

	a := math.Cos(dec) * math.Sin(ra+zeta)
	b := math.Cos(theta)*math.Cos(dec)*math.Cos(ra+zeta) - math.Sin(theta)*math.Sin(dec)
	c := math.Sin(theta)*math.Cos(dec)*math.Cos(ra+zeta) + math.Cos(theta)*math.Sin(dec)

	newDec := math.Asin(clamp(c))
	if math.Abs(c) > 0.99 {
		// asin loses precision near the poles
		newDec = math.Copysign(math.Acos(clamp(math.Hypot(a, b))), c)
	}

	return wrapHours((math.Atan2(a, b) + z) / hour), newDec / deg
}

// PrecessFromJ2000 precesses J2000 coordinates to the equinox of date at utc.
func PrecessFromJ2000(raHours, decDeg, utc float64) (float64, float64) {
	return Precess(raHours, decDeg, J2000, UnixToJD(utc))
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
