// Package shower decides which meteor shower, if any, a meteor track belongs to.
//
// Each active shower whose radiant is above the horizon is scored by its
// hourly rate times a normal density in the angle by which the track's great
// circle misses the radiant. A flat sporadic background competes with them.
package shower

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/vector"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/track"
)

// Sporadic names the background hypothesis.
const Sporadic = "Sporadic"

const (
	deg         = math.Pi / 180
	daysPerYear = 365.2422
)

// Candidate is one scored hypothesis. Likelihoods of a Result sum to 100.
type Candidate struct {
	Name          string
	IAUCode       string
	Likelihood    float64
	RadiantOffset float64 // degrees between the track's great circle and the radiant
	HourlyRate    float64
}

// IsSporadic reports whether c is the background hypothesis.
func (c Candidate) IsSporadic() bool { return c.Name == Sporadic }

// Result lists every surviving hypothesis, best first.
type Result struct {
	Candidates []Candidate
}

// Best returns the winning hypothesis.
func (r *Result) Best() Candidate { return r.Candidates[0] }

// Identifier scores tracks against a shower catalogue.
type Identifier struct {
	showers  []refdata.Shower
	settings conf.ShowerSettings
	miss     distuv.Normal
}

// NewIdentifier returns an identifier over showers. Zero settings take the
// usual values: σ = 2°, sporadic rate 5, peak window 2 days, off-peak ZHR 5.
func NewIdentifier(showers []refdata.Shower, settings conf.ShowerSettings) *Identifier {
	if settings.Sigma <= 0 {
		settings.Sigma = 2
	}
	if settings.SporadicRate <= 0 {
		settings.SporadicRate = 5
	}
	if settings.PeakWindowDays <= 0 {
		settings.PeakWindowDays = 2
	}
	if settings.OffPeakZHR <= 0 {
		settings.OffPeakZHR = 5
	}
	return &Identifier{
		showers:  showers,
		settings: settings,
		miss:     distuv.Normal{Mu: 0, Sigma: settings.Sigma},
	}
}

// Identify scores a sky path seen at utc from (lat, lng).
func (id *Identifier) Identify(path []track.SkyPos, utc, lat, lng float64) (*Result, error) {
	if len(path) < 2 {
		return nil, errors.Newf("path has %d points, need 2", len(path)).
			Component("shower").
			Category(errors.CategoryValidation).
			Build()
	}

	first, last := path[0], path[len(path)-1]
	p0 := vector.FromRaDec(first.RA, first.Dec)
	p1 := vector.FromRaDec(last.RA, last.Dec)
	normal := p0.Cross(p1)
	if normal.Abs() == 0 {
		return nil, errors.Newf("path has no extent").
			Component("shower").
			Category(errors.CategoryValidation).
			Build()
	}

	sunLng := ephemeris.SolarLongitude(utc)
	out := &Result{Candidates: []Candidate{{
		Name:       Sporadic,
		Likelihood: id.settings.SporadicRate / 90,
		HourlyRate: id.settings.SporadicRate,
	}}}

	for _, s := range id.showers {
		offset := math.Remainder(sunLng-s.PeakSolarLongitude, 360) / 360 * daysPerYear

		var zhr float64
		inWindow := offset >= s.StartOffset && offset <= s.EndOffset
		switch {
		case s.VariableZHR && inWindow:
			// No listed peak rate, so the whole window uses the off-peak rate.
			zhr = id.settings.OffPeakZHR
		case s.VariableZHR:
			continue
		case math.Abs(offset) < id.settings.PeakWindowDays:
			zhr = s.PeakZHR
		case inWindow:
			zhr = id.settings.OffPeakZHR
		default:
			continue
		}

		raH, decD := ephemeris.PrecessFromJ2000(s.RadiantRA, s.RadiantDec, utc)
		alt, _ := ephemeris.AltAz(raH, decD, utc, lat, lng)
		rate := zhr * math.Sin(alt*deg)
		if rate <= 0 {
			continue
		}

		radiant := vector.FromRaDec(raH, decD)
		// Meteors move away from their radiant.
		if p1.AngleWith(radiant) <= p0.AngleWith(radiant) {
			continue
		}

		miss := math.Abs(90 - normal.AngleWith(radiant)/deg)

		out.Candidates = append(out.Candidates, Candidate{
			Name:          s.Name,
			IAUCode:       s.IAUCode,
			Likelihood:    rate * id.miss.Prob(miss),
			RadiantOffset: miss,
			HourlyRate:    rate,
		})
	}

	var total float64
	for _, c := range out.Candidates {
		total += c.Likelihood
	}
	for i := range out.Candidates {
		out.Candidates[i].Likelihood *= 100 / total
	}
	slices.SortStableFunc(out.Candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Likelihood, a.Likelihood)
	})
	return out, nil
}
