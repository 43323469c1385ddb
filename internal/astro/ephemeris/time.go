// Package ephemeris provides the time and sky-position services of the pipeline:
// Julian dates on the British calendar, Greenwich sidereal time, the Sun's position,
// horizontal/equatorial conversion, rise-culmination-set times and precession.
//
// Interfaces take unix seconds, degrees and hours. Radians are used internally.
package ephemeris

import (
	"math"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/tphakala/skyarchive/internal/errors"
)

const (
	// unixEpochJD is the Julian day of 1970-01-01T00:00:00Z.
	unixEpochJD = 2440587.5

	// J2000 is the Julian day of the J2000.0 epoch.
	J2000 = 2451545.0

	// SiderealRate is sidereal seconds per SI second.
	SiderealRate = 1.00273790935

	// SiderealDay is the length of a sidereal day in seconds.
	SiderealDay = 86164.0905

	// gregorianStartZ is the integer day number of 1752-09-14, the first Gregorian
	// date in Britain. 1752-09-02 (Julian) was the day before.
	gregorianStartZ = 2361222
)

// ErrCalendarGap marks dates that never existed in Britain.
var ErrCalendarGap = errors.NewStd("date falls in the 1752-09-03..13 calendar gap")

// UnixToJD converts unix seconds to a Julian day.
func UnixToJD(utc float64) float64 {
	return utc/86400 + unixEpochJD
}

// JDToUnix converts a Julian day to unix seconds.
func JDToUnix(jd float64) float64 {
	return (jd - unixEpochJD) * 86400
}

// JulianDay converts a British civil date to a Julian day. Dates up to 1752-09-02
// are on the Julian calendar, dates from 1752-09-14 on the Gregorian one.
func JulianDay(year, month, day, hour, minute int, sec float64) (float64, error) {
	fracDay := float64(day) + (float64(hour)+float64(minute)/60+sec/3600)/24

	switch {
	case year < 1752 || (year == 1752 && (month < 9 || (month == 9 && day <= 2))):
		return julian.CalendarJulianToJD(year, month, fracDay), nil
	case year == 1752 && month == 9 && day < 14:
		return 0, errors.New(ErrCalendarGap).
			Category(errors.CategoryInvalidDate).
			Context("year", year).
			Context("month", month).
			Context("day", day).
			Build()
	default:
		return julian.CalendarGregorianToJD(year, month, fracDay), nil
	}
}

// MustJulianDay is JulianDay for dates known to be valid; it panics on the calendar gap.
func MustJulianDay(year, month, day, hour, minute int, sec float64) float64 {
	jd, err := JulianDay(year, month, day, hour, minute, sec)
	if err != nil {
		panic(err)
	}
	return jd
}

// InvJulianDay converts a Julian day back to a British civil date.
func InvJulianDay(jd float64) (year, month, day, hour, minute int, sec float64) {
	z := math.Floor(jd + 0.5)
	f := jd + 0.5 - z

	a := z
	if z >= gregorianStartZ {
		alpha := math.Floor((z - 1867216.25) / 36524.25)
		a = z + 1 + alpha - math.Floor(alpha/4)
	}

	b := a + 1524
	c := math.Floor((b - 122.1) / 365.25)
	d := math.Floor(365.25 * c)
	e := math.Floor((b - d) / 30.6001)

	day = int(b - d - math.Floor(30.6001*e))
	if e < 14 {
		month = int(e) - 1
	} else {
		month = int(e) - 13
	}
	if month > 2 {
		year = int(c) - 4716
	} else {
		year = int(c) - 4715
	}

	// millisecond rounding hides the float error of a JD near 2.4e6
	secs := math.Min(math.Round(f*86400*1000)/1000, 86399.999)
	hour = int(secs / 3600)
	minute = int((secs - float64(hour)*3600) / 60)
	sec = secs - float64(hour)*3600 - float64(minute)*60
	return year, month, day, hour, minute, sec
}

// SiderealTime returns Greenwich mean sidereal time in hours, in [0, 24).
func SiderealTime(utc float64) float64 {
	return sidereal.Mean(UnixToJD(utc)).Hour()
}

// LocalSiderealTime returns local mean sidereal time in hours for an east-positive longitude.
func LocalSiderealTime(utc, lngDeg float64) float64 {
	return wrapHours(SiderealTime(utc) + lngDeg/15)
}

func wrapHours(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
