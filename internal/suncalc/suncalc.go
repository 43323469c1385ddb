// Package suncalc decides whether the sky over an observatory was dark enough
// for star fitting.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
)

// Night is the dark interval that begins on the evening of a calendar date.
type Night struct {
	Dusk time.Time // UTC
	Dawn time.Time // UTC, the following morning

	// Near the poles the sun may never cross the twilight depression.
	AlwaysDark bool
	NeverDark  bool
}

// Contains reports whether t falls in the night.
func (n Night) Contains(t time.Time) bool {
	switch {
	case n.AlwaysDark:
		return true
	case n.NeverDark:
		return false
	}
	return !t.Before(n.Dusk) && t.Before(n.Dawn)
}

type cacheEntry struct {
	night Night
	date  time.Time
}

// SunCalc computes and caches nights for one site.
type SunCalc struct {
	cache      map[string]cacheEntry
	lock       sync.RWMutex
	observer   astral.Observer
	depression float64
}

// Depression returns the solar depression in degrees for a named twilight:
// civil, nautical or astronomical.
func Depression(twilight string) (float64, error) {
	switch twilight {
	case "civil", "":
		return astral.DepressionCivil, nil
	case "nautical":
		return astral.DepressionNautical, nil
	case "astronomical":
		return astral.DepressionAstronomical, nil
	}
	return 0, fmt.Errorf("unknown twilight %q", twilight)
}

// NewSunCalc returns a calculator for the site, treating the sky as dark once
// the sun is below the named twilight.
func NewSunCalc(latitude, longitude float64, twilight string) (*SunCalc, error) {
	dep, err := Depression(twilight)
	if err != nil {
		return nil, err
	}
	return &SunCalc{
		cache:      make(map[string]cacheEntry),
		observer:   astral.Observer{Latitude: latitude, Longitude: longitude},
		depression: dep,
	}, nil
}

// NightOf returns the night beginning on the evening of date.
func (sc *SunCalc) NightOf(date time.Time) Night {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	key := date.Format("2006-01-02")

	sc.lock.RLock()
	entry, exists := sc.cache[key]
	sc.lock.RUnlock()
	if exists && entry.date.Equal(date) {
		return entry.night
	}

	night := sc.calculateNight(date)

	sc.lock.Lock()
	sc.cache[key] = cacheEntry{night: night, date: date}
	sc.lock.Unlock()
	return night
}

func (sc *SunCalc) calculateNight(date time.Time) Night {
	dusk, errDusk := astral.Dusk(sc.observer, date, sc.depression)
	dawn, errDawn := astral.Dawn(sc.observer, date.AddDate(0, 0, 1), sc.depression)
	if errDusk == nil && errDawn == nil && dawn.After(dusk) {
		return Night{Dusk: dusk.UTC(), Dawn: dawn.UTC()}
	}

	// No crossing: the sun at local midnight settles which way it went.
	midnight := date.Add(24*time.Hour - time.Duration(sc.observer.Longitude/15*float64(time.Hour)))
	if sc.sunAltitude(midnight) > -sc.depression {
		return Night{NeverDark: true}
	}
	return Night{AlwaysDark: true}
}

func (sc *SunCalc) sunAltitude(t time.Time) float64 {
	utc := float64(t.UnixNano()) / 1e9
	ra, dec := ephemeris.SunPos(utc)
	alt, _ := ephemeris.AltAz(ra, dec, utc, sc.observer.Latitude, sc.observer.Longitude)
	return alt
}

// IsDark reports whether the sky was dark at utc, a unix time.
func (sc *SunCalc) IsDark(utc float64) bool {
	t := time.Unix(0, int64(utc*1e9)).UTC()
	// Nights are keyed by the local date of the preceding noon.
	local := t.Add(time.Duration(sc.observer.Longitude / 15 * float64(time.Hour)))
	date := local
	if local.Hour() < 12 {
		date = local.AddDate(0, 0, -1)
	}
	return sc.NightOf(date).Contains(t)
}

// SunAltitude is the sun's altitude in degrees at utc, seen from the site.
func (sc *SunCalc) SunAltitude(utc float64) float64 {
	return sc.sunAltitude(time.Unix(0, int64(utc*1e9)))
}

// DarkByAltitude is the direct test behind IsDark, without the cached night.
func (sc *SunCalc) DarkByAltitude(utc float64) bool {
	return sc.SunAltitude(utc) < -sc.depression
}
