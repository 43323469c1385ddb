package refdata

import (
	"fmt"
	"io"
	"strconv"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/skyarchive/internal/datastore"
)

// Star is a catalogue position.
type Star struct {
	HIP int
	RA  float64 // hours, J2000
	Dec float64 // degrees, J2000
}

// ParseHipparcos reads a JSON object mapping Hipparcos numbers to
// [ra_hours, dec_degrees].
func ParseHipparcos(r io.Reader) (map[int]Star, error) {
	obj, err := jason.NewObjectFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode hipparcos: %w", err)
	}

	entries := obj.Map()
	out := make(map[int]Star, len(entries))
	for key, v := range entries {
		hip, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("hipparcos key %q is not a number", key)
		}
		pos, err := v.Array()
		if err != nil || len(pos) != 2 {
			return nil, fmt.Errorf("hipparcos %d: want [ra, dec]", hip)
		}
		ra, errRA := pos[0].Float64()
		dec, errDec := pos[1].Float64()
		if errRA != nil || errDec != nil {
			return nil, fmt.Errorf("hipparcos %d: non-numeric position", hip)
		}
		out[hip] = Star{HIP: hip, RA: ra, Dec: dec}
	}
	return out, nil
}

// ParseSatellites reads a JSON list of element sets. Angles are degrees, epoch
// and decay_date are unix seconds, mean_motion is revolutions per day.
func ParseSatellites(r io.Reader) ([]*datastore.SatelliteElements, error) {
	v, err := jason.NewValueFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode satellites: %w", err)
	}
	items, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("satellite catalogue is not a list: %w", err)
	}

	out := make([]*datastore.SatelliteElements, 0, len(items))
	for i, item := range items {
		row, err := item.Object()
		if err != nil {
			return nil, fmt.Errorf("satellite row %d is not an object: %w", i, err)
		}
		e, err := parseElements(row)
		if err != nil {
			return nil, fmt.Errorf("satellite row %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseElements(row *jason.Object) (*datastore.SatelliteElements, error) {
	norad, err := row.GetInt64("norad_id")
	if err != nil {
		return nil, fmt.Errorf("norad_id: %w", err)
	}
	e := &datastore.SatelliteElements{NoradID: int(norad)}
	e.Name, _ = row.GetString("name")

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"epoch", &e.Epoch},
		{"mean_motion", &e.MeanMotion},
		{"eccentricity", &e.Eccentricity},
		{"inclination", &e.Inclination},
		{"raan", &e.RAAN},
		{"arg_perigee", &e.ArgPerigee},
		{"mean_anomaly", &e.MeanAnomaly},
		{"bstar", &e.BStar},
	} {
		if *f.dst, err = row.GetFloat64(f.key); err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	if decay, err := row.GetFloat64("decay_date"); err == nil {
		e.DecayDate = &decay
	}
	e.Debris, _ = row.GetBoolean("debris")
	if rev, err := row.GetInt64("rev_number"); err == nil {
		e.RevolutionNum = int(rev)
	}

	if e.MeanMotion <= 0 || e.Eccentricity < 0 || e.Eccentricity >= 1 {
		return nil, fmt.Errorf("norad %d: implausible elements", e.NoradID)
	}
	return e, nil
}
