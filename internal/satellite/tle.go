package satellite

import (
	"fmt"
	"math"
	"time"

	gosat "github.com/joshuaferrara/go-satellite"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
)

// FormatTLE renders an element set as the two 69-column lines SGP4 consumes.
// First and second derivatives of mean motion are not tabulated and are
// written as zero.
func FormatTLE(e *datastore.SatelliteElements) (line1, line2 string, err error) {
	switch {
	case e.NoradID <= 0 || e.NoradID > 99999:
		return "", "", fmt.Errorf("norad id %d does not fit a TLE", e.NoradID)
	case e.Eccentricity < 0 || e.Eccentricity >= 1:
		return "", "", fmt.Errorf("eccentricity %g out of range", e.Eccentricity)
	case e.MeanMotion <= 0 || e.MeanMotion >= 100:
		return "", "", fmt.Errorf("mean motion %g out of range", e.MeanMotion)
	}

	epoch := time.Unix(0, int64(e.Epoch*1e9)).UTC()
	midnight := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
	day := float64(epoch.YearDay()) + epoch.Sub(midnight).Seconds()/86400

	line1 = fmt.Sprintf("1 %05dU %-8s %02d%012.8f %s %s %s 0 %4d",
		e.NoradID, "", epoch.Year()%100, day, " .00000000", " 00000+0", expField(e.BStar), 999)
	line2 = fmt.Sprintf("2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d",
		e.NoradID,
		wrap360(e.Inclination),
		wrap360(e.RAAN),
		int(math.Round(e.Eccentricity*1e7)),
		wrap360(e.ArgPerigee),
		wrap360(e.MeanAnomaly),
		e.MeanMotion,
		e.RevolutionNum%100000)
	return line1 + checksum(line1), line2 + checksum(line2), nil
}

// expField writes v in the TLE's assumed-decimal exponent notation: sign,
// five mantissa digits, signed exponent, so -0.000021237 is "-21237-4".
func expField(v float64) string {
	if v == 0 {
		return " 00000+0"
	}
	sign := ' '
	if v < 0 {
		sign = '-'
	}
	m := math.Abs(v)
	exp := int(math.Floor(math.Log10(m))) + 1
	mantissa := int(math.Round(m / math.Pow(10, float64(exp)) * 1e5))
	if mantissa >= 100000 {
		mantissa /= 10
		exp++
	}
	exp = max(-9, min(9, exp))
	expSign := '+'
	if exp < 0 {
		expSign = '-'
	}
	return fmt.Sprintf("%c%05d%c%d", sign, mantissa, expSign, abs(exp))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// checksum is the modulo-10 sum of digits, with minus signs counting one.
func checksum(line string) string {
	var sum int
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return fmt.Sprint(sum % 10)
}

// Propagator predicts where one satellite is.
type Propagator struct {
	Elements *datastore.SatelliteElements
	sat      gosat.Satellite
}

// NewPropagator initialises SGP4 from an element set.
func NewPropagator(e *datastore.SatelliteElements) (*Propagator, error) {
	l1, l2, err := FormatTLE(e)
	if err != nil {
		return nil, errors.New(err).
			Component("satellite").
			Category(errors.CategoryPropagation).
			Context("norad_id", e.NoradID).
			Build()
	}
	return &Propagator{Elements: e, sat: gosat.TLEToSat(l1, l2, gosat.GravityWGS72)}, nil
}

func (p *Propagator) propagateAt(sec int64) gosat.Vector3 {
	t := time.Unix(sec, 0).UTC()
	pos, _ := gosat.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	return pos
}

// Position returns the TEME position in km at utc. SGP4 is evaluated on whole
// seconds and interpolated linearly between them; over one second the chord
// departs from a low orbit by about a metre.
func (p *Propagator) Position(utc float64) (gosat.Vector3, error) {
	s := math.Floor(utc)
	f := utc - s
	a := p.propagateAt(int64(s))
	b := p.propagateAt(int64(s) + 1)
	pos := gosat.Vector3{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		Z: a.Z + (b.Z-a.Z)*f,
	}

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if math.IsNaN(r) || r < 6000 {
		return pos, errors.Newf("sgp4 failed for %d at %.0f", p.Elements.NoradID, utc).
			Component("satellite").
			Category(errors.CategoryPropagation).
			Context("norad_id", p.Elements.NoradID).
			Build()
	}
	return pos, nil
}

// Look returns the topocentric altitude and azimuth (degrees) and range (km)
// of the satellite at utc, seen from a geodetic site.
func (p *Propagator) Look(utc, latDeg, lngDeg, altM float64) (alt, az, rangeKm float64, err error) {
	pos, err := p.Position(utc)
	if err != nil {
		return 0, 0, 0, err
	}
	look := gosat.ECIToLookAngles(pos,
		gosat.LatLong{Latitude: latDeg * deg, Longitude: lngDeg * deg},
		altM/1000,
		ephemeris.UnixToJD(utc))
	return look.El / deg, look.Az / deg, look.Rg, nil
}
