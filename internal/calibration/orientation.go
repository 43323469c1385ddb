package calibration

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/refdata"
)

// Orientation is a camera's pointing expressed in the local horizon frame.
// Angles are degrees except RA, which is hours.
type Orientation struct {
	UTC         float64
	Altitude    float64
	Azimuth     float64
	Tilt        float64
	Roll        float64
	RA, Dec     float64
	AngWidth    float64
	AngHeight   float64
	FitQuality  float64
	Uncertainty float64
	ImageCount  int
}

// OrientationAt converts a solution fitted to an image taken at utc from
// (lat, lng) into horizon coordinates. Tilt is the angle from the local vertical
// to the image's up direction.
func OrientationAt(sol *Solution, utc, lat, lng float64) Orientation {
	alt, az := ephemeris.AltAz(sol.RA, sol.Dec, utc, lat, lng)
	zRa, zDec := ephemeris.ZenithPosition(lat, lng, utc)
	zenithPA := projection.PositionAngle(sol.RA*15*deg, sol.Dec*deg, zRa*15*deg, zDec*deg)

	return Orientation{
		UTC:        utc,
		Altitude:   alt,
		Azimuth:    az,
		Tilt:       math.Remainder(zenithPA-sol.PosAng*deg, 2*math.Pi) / deg,
		Roll:       sol.PosAng,
		RA:         sol.RA,
		Dec:        sol.Dec,
		AngWidth:   sol.FovX,
		AngHeight:  sol.FovY,
		FitQuality: sol.FitQuality(),
		ImageCount: 1,
	}
}

// DailyAverage combines per-image fits whose quality is below threshold.
// Azimuth, tilt and roll are averaged on the circle. Uncertainty is the RMS
// angular distance of the contributing centres from the mean centre. ok is
// false when no fit qualifies.
func DailyAverage(fits []Orientation, threshold float64) (Orientation, bool) {
	var alt, az, tilt, roll, w, h, q []float64
	for _, f := range fits {
		if f.FitQuality >= threshold {
			continue
		}
		alt = append(alt, f.Altitude)
		az = append(az, f.Azimuth*deg)
		tilt = append(tilt, f.Tilt*deg)
		roll = append(roll, f.Roll*deg)
		w = append(w, f.AngWidth)
		h = append(h, f.AngHeight)
		q = append(q, f.FitQuality)
	}
	if len(alt) == 0 {
		return Orientation{}, false
	}

	out := Orientation{
		UTC:        fits[0].UTC,
		Altitude:   stat.Mean(alt, nil),
		Azimuth:    projection.WrapRA(stat.CircularMean(az, nil)) / deg,
		Tilt:       stat.CircularMean(tilt, nil) / deg,
		Roll:       stat.CircularMean(roll, nil) / deg,
		AngWidth:   stat.Mean(w, nil),
		AngHeight:  stat.Mean(h, nil),
		FitQuality: stat.Mean(q, nil),
		ImageCount: len(alt),
	}

	var sum float64
	for i := range alt {
		d := projection.AngDist(az[i], alt[i]*deg, out.Azimuth*deg, out.Altitude*deg)
		sum += d * d
	}
	out.Uncertainty = math.Sqrt(sum/float64(len(alt))) / deg
	return out, true
}

// NightStart returns the local noon, at longitude lng, that begins the night
// containing utc. Fits from the same night share a NightStart.
func NightStart(utc, lng float64) float64 {
	offset := lng / 15 * 3600
	local := time.Unix(int64(math.Floor(utc+offset)), 0).UTC()
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)
	if local.Before(noon) {
		noon = noon.AddDate(0, 0, -1)
	}
	return float64(noon.Unix()) - offset
}

// ParseStarList reads a JSON list of [x, y, hipparcos_number] and looks each
// star up in cat, precessing it to the equinox at utc. Stars missing from the
// catalogue are skipped.
func ParseStarList(r io.Reader, cat map[int]refdata.Star, utc float64) ([]Star, error) {
	v, err := jason.NewValueFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode star list: %w", err)
	}
	items, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("star list is not a list: %w", err)
	}

	out := make([]Star, 0, len(items))
	for i, item := range items {
		cols, err := item.Array()
		if err != nil || len(cols) < 3 {
			return nil, fmt.Errorf("star %d: want [x, y, hip]", i)
		}
		x, errX := cols[0].Float64()
		y, errY := cols[1].Float64()
		hip, errH := cols[2].Int64()
		if errX != nil || errY != nil || errH != nil {
			return nil, fmt.Errorf("star %d: non-numeric entry", i)
		}
		ref, ok := cat[int(hip)]
		if !ok {
			continue
		}
		ra, dec := ephemeris.PrecessFromJ2000(ref.RA, ref.Dec, utc)
		out = append(out, Star{HIP: int(hip), X: x, Y: y, RA: ra, Dec: dec})
	}
	return out, nil
}

// ParseStarListString is ParseStarList over a metadata string.
func ParseStarListString(s string, cat map[int]refdata.Star, utc float64) ([]Star, error) {
	return ParseStarList(strings.NewReader(s), cat, utc)
}
