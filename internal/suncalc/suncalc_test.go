package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    float64
		wantErr bool
	}{
		{"civil", 6, false},
		{"", 6, false},
		{"nautical", 12, false},
		{"astronomical", 18, false},
		{"dusky", 0, true},
	}
	for _, tt := range tests {
		got, err := Depression(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.InDelta(t, tt.want, got, 0, tt.name)
	}

	_, err := NewSunCalc(0, 0, "dusky")
	require.Error(t, err)
}

func TestNightOfSummerEvening(t *testing.T) {
	t.Parallel()

	sc := newTestSunCalc(t, "civil")
	night := sc.NightOf(time.Date(2020, 8, 12, 15, 0, 0, 0, time.UTC))
	require.False(t, night.AlwaysDark)
	require.False(t, night.NeverDark)

	// Civil dusk is a little before 20:00 UTC, civil dawn around 04:15.
	assert.WithinDuration(t, time.Date(2020, 8, 12, 20, 0, 0, 0, time.UTC), night.Dusk, 30*time.Minute)
	assert.WithinDuration(t, time.Date(2020, 8, 13, 4, 15, 0, 0, time.UTC), night.Dawn, 30*time.Minute)

	// Cached on the second call.
	assert.Equal(t, night, sc.NightOf(time.Date(2020, 8, 12, 0, 0, 0, 0, time.UTC)))
	sc.lock.RLock()
	_, cached := sc.cache["2020-08-12"]
	sc.lock.RUnlock()
	assert.True(t, cached)
}

func TestIsDark(t *testing.T) {
	t.Parallel()

	sc := newTestSunCalc(t, "civil")
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"late evening", time.Date(2020, 8, 12, 23, 0, 0, 0, time.UTC), true},
		{"small hours", time.Date(2020, 8, 13, 2, 0, 0, 0, time.UTC), true},
		{"noon", time.Date(2020, 8, 12, 12, 0, 0, 0, time.UTC), false},
		{"sunset", time.Date(2020, 8, 12, 19, 20, 0, 0, time.UTC), false},
		{"mid morning", time.Date(2020, 8, 13, 9, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sc.IsDark(unix(tt.at)), tt.name)
		assert.Equal(t, tt.want, sc.DarkByAltitude(unix(tt.at)), tt.name)
	}
}

func TestAstronomicalTwilightIsStricter(t *testing.T) {
	t.Parallel()

	civil := newTestSunCalc(t, "civil")
	astro := newTestSunCalc(t, "astronomical")

	date := time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)
	c, a := civil.NightOf(date), astro.NightOf(date)
	assert.True(t, a.Dusk.After(c.Dusk))
	assert.True(t, a.Dawn.Before(c.Dawn))

	// Midsummer in England never reaches astronomical darkness.
	assert.True(t, astro.NightOf(time.Date(2020, 6, 21, 0, 0, 0, 0, time.UTC)).NeverDark)
}

func TestPolarNights(t *testing.T) {
	t.Parallel()

	// Tromsø
	sc, err := NewSunCalc(69.65, 18.96, "civil")
	require.NoError(t, err)

	summer := sc.NightOf(time.Date(2020, 6, 21, 0, 0, 0, 0, time.UTC))
	assert.True(t, summer.NeverDark)
	assert.False(t, sc.IsDark(unix(time.Date(2020, 6, 21, 23, 0, 0, 0, time.UTC))))

	// Svalbard in midwinter stays below civil twilight all day.
	polar, err := NewSunCalc(78.22, 15.65, "civil")
	require.NoError(t, err)
	winter := polar.NightOf(time.Date(2020, 12, 21, 0, 0, 0, 0, time.UTC))
	assert.True(t, winter.AlwaysDark)
	assert.True(t, polar.IsDark(unix(time.Date(2020, 12, 21, 11, 0, 0, 0, time.UTC))))
}
