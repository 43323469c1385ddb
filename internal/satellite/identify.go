// Package satellite matches moving-object tracks against SGP4 predictions of
// catalogued satellites.
package satellite

import (
	"cmp"
	"math"
	"slices"

	"github.com/tphakala/skyarchive/internal/astro/fit"
	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
	"github.com/tphakala/skyarchive/internal/track"
)

const deg = math.Pi / 180

// Unidentified names the fallback match.
const Unidentified = "Unidentified"

// unidentifiedDistance is the effective distance of the fallback, a quarter of
// the geostationary altitude in km.
const unidentifiedDistance = 35786.0 / 4

// Match is one candidate that survived the mismatch tests.
type Match struct {
	Name          string
	NoradID       int
	ClockOffset   float64 // seconds added to the track's clock
	AngularOffset float64 // mean mismatch over the track, degrees
	RangeKm       float64 // at the first sample
	// EffectiveDistance ranks matches: range times mismatch in radians, so a
	// nearby satellite beats an equally well-aligned distant one.
	EffectiveDistance float64
}

// IsUnidentified reports whether m is the fallback.
func (m Match) IsUnidentified() bool { return m.Name == Unidentified }

// Result lists surviving matches, best first; the fallback is always present.
type Result struct {
	Matches   []Match
	Evaluated int
	Rejected  int
}

// Best returns the winner.
func (r *Result) Best() Match { return r.Matches[0] }

// Identifier matches tracks against element sets.
type Identifier struct {
	settings conf.SatelliteSettings
	log      logger.Logger
}

// NewIdentifier returns an identifier. Zero settings take the usual values:
// quick reject 10°, accept 4°, clock prior 30 s.
func NewIdentifier(settings conf.SatelliteSettings) *Identifier {
	if settings.QuickReject <= 0 {
		settings.QuickReject = 10
	}
	if settings.AcceptMismatch <= 0 {
		settings.AcceptMismatch = 4
	}
	if settings.ClockPriorScale <= 0 {
		settings.ClockPriorScale = 30
	}
	return &Identifier{settings: settings, log: logger.Global().Module("satellite")}
}

// Identify scores every candidate against the track's altitude and azimuth
// history as seen from the track's observatory.
func (id *Identifier) Identify(t *track.Track, candidates []*datastore.SatelliteElements) (*Result, error) {
	if len(t.Horizon) < 2 || len(t.Samples) != len(t.Horizon) || t.Pointing == nil {
		return nil, errors.Newf("track needs at least 2 sky positions, has %d", len(t.Horizon)).
			Component("satellite").
			Category(errors.CategoryValidation).
			Build()
	}

	res := &Result{Matches: []Match{{Name: Unidentified, EffectiveDistance: unidentifiedDistance}}}
	for _, e := range candidates {
		res.Evaluated++
		m, ok := id.score(t, e)
		if !ok {
			res.Rejected++
			continue
		}
		res.Matches = append(res.Matches, m)
	}

	slices.SortStableFunc(res.Matches, func(a, b Match) int {
		return cmp.Compare(a.EffectiveDistance, b.EffectiveDistance)
	})
	return res, nil
}

func (id *Identifier) score(t *track.Track, e *datastore.SatelliteElements) (Match, bool) {
	prop, err := NewPropagator(e)
	if err != nil {
		id.log.Debug("skipping element set", logger.Int("norad_id", e.NoradID), logger.Error(err))
		return Match{}, false
	}
	site := t.Pointing

	// mismatch also returns the predicted altitude in degrees and the range.
	mismatch := func(i int, offset float64) (float64, float64, float64) {
		alt, az, rng, err := prop.Look(t.Samples[i].UTC+offset, site.Latitude, site.Longitude, site.AltitudeM)
		if err != nil {
			return math.Pi, -90, 0
		}
		obs := t.Horizon[i]
		return angleBetween(alt, az, obs.Alt, obs.Az), alt, rng
	}

	first, alt, _ := mismatch(0, 0)
	if first > id.settings.QuickReject*deg || alt <= 0 {
		return Match{}, false
	}

	scale := id.settings.ClockPriorScale
	offset, _, err := fit.Minimize1D(func(dt float64) float64 {
		m, _, _ := mismatch(0, dt)
		return m * math.Exp(math.Abs(dt)/scale)
	}, 0, fit.Options{Step: 1, Tolerance: 1e-12, MaxIterations: 2000})
	if err != nil {
		return Match{}, false
	}

	var sum, rangeKm float64
	for i := range t.Horizon {
		m, alt, rng := mismatch(i, offset)
		// Never match a prediction below the horizon.
		if alt <= 0 {
			id.log.Debug("candidate below horizon",
				logger.Int("norad_id", e.NoradID),
				logger.Float64("altitude", alt))
			return Match{}, false
		}
		if i == 0 {
			rangeKm = rng
		}
		sum += m
	}
	mean := sum / float64(len(t.Horizon))
	if mean >= id.settings.AcceptMismatch*deg {
		return Match{}, false
	}

	return Match{
		Name:              e.Name,
		NoradID:           e.NoradID,
		ClockOffset:       offset,
		AngularOffset:     mean / deg,
		RangeKm:           rangeKm,
		EffectiveDistance: rangeKm * mean,
	}, true
}

// angleBetween returns the angle in radians between two horizon directions
// given in degrees.
func angleBetween(alt1, az1, alt2, az2 float64) float64 {
	a := vector.FromRaDec(az1/15, alt1)
	b := vector.FromRaDec(az2/15, alt2)
	return a.AngleWith(b)
}
