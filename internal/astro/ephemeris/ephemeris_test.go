package ephemeris

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/errors"
)

func TestJulianDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y, m, d, h, mi int
		s              float64
		want           float64
	}{
		{"J2000", 2000, 1, 1, 12, 0, 0, 2451545.0},
		{"unix epoch", 1970, 1, 1, 0, 0, 0, unixEpochJD},
		{"last julian date", 1752, 9, 2, 0, 0, 0, 2361220.5},
		{"first gregorian date", 1752, 9, 14, 0, 0, 0, 2361221.5},
		{"meeus 7.a", 1957, 10, 4, 19, 26, 24, 2436116.31},
		{"julian calendar", 333, 1, 27, 12, 0, 0, 1842713.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			jd, err := JulianDay(tt.y, tt.m, tt.d, tt.h, tt.mi, tt.s)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, jd, 1e-6)
		})
	}
}

func TestJulianDayCalendarGap(t *testing.T) {
	t.Parallel()

	for day := 3; day <= 13; day++ {
		_, err := JulianDay(1752, 9, day, 0, 0, 0)
		require.Error(t, err, "day %d", day)
		assert.True(t, errors.IsCategory(err, errors.CategoryInvalidDate))
		assert.ErrorIs(t, err, ErrCalendarGap)
	}

	assert.Panics(t, func() { MustJulianDay(1752, 9, 10, 0, 0, 0) })
}

func TestInvJulianDayRoundTrip(t *testing.T) {
	t.Parallel()

	dates := [][6]float64{
		{2019, 8, 12, 22, 0, 0},
		{1752, 9, 2, 23, 59, 30},
		{1752, 9, 14, 0, 0, 1},
		{1066, 10, 14, 9, 30, 0},
		{2100, 2, 28, 6, 15, 45.5},
	}

	for _, d := range dates {
		jd := MustJulianDay(int(d[0]), int(d[1]), int(d[2]), int(d[3]), int(d[4]), d[5])
		y, m, day, h, mi, s := InvJulianDay(jd)
		assert.Equal(t, int(d[0]), y)
		assert.Equal(t, int(d[1]), m)
		assert.Equal(t, int(d[2]), day)
		assert.Equal(t, int(d[3]), h)
		assert.Equal(t, int(d[4]), mi)
		assert.InDelta(t, d[5], s, 1e-3)
	}
}

func TestUnixJDConversion(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, unixEpochJD, UnixToJD(0), 0)
	assert.InDelta(t, 1565647200.0, JDToUnix(UnixToJD(1565647200)), 1e-4)
}

func TestSiderealTime(t *testing.T) {
	t.Parallel()

	// Meeus example 12.a: 1987 April 10, 0h UT.
	utc := JDToUnix(2446895.5)
	assert.InDelta(t, 13+10.0/60+46.3668/3600, SiderealTime(utc), 1e-6)

	for _, base := range []float64{0, 1.2e9, 1565647200, 1.9e9} {
		st0 := SiderealTime(base)
		st1 := SiderealTime(base + SiderealDay)
		diff := math.Mod(st1-st0+36, 24) - 12
		assert.InDelta(t, 0, diff*3600, 1e-3, "base %v", base)
	}
}

func TestSunPos(t *testing.T) {
	t.Parallel()

	// Meeus example 25.a: 1992 October 13, 0h TD.
	utc := JDToUnix(2448908.5)
	ra, dec := SunPos(utc)
	assert.InDelta(t, 13+13.0/60+31.4/3600, ra, 1e-3)
	assert.InDelta(t, -(7 + 47.0/60 + 1.0/3600), dec, 1e-2)
	assert.InDelta(t, 199.90895, SolarLongitude(utc), 1e-2)
}

func TestAltAzRoundTrip(t *testing.T) {
	t.Parallel()

	const utc = 1565647200.0 // 2019-08-12T22:00:00Z
	const lat, lng = 52.2, 0.12

	for alt := -80.0; alt <= 80; alt += 20 {
		for az := 0.0; az < 360; az += 45 {
			ra, dec := RaDec(alt, az, utc, lat, lng)
			alt2, az2 := AltAz(ra, dec, utc, lat, lng)
			assert.InDelta(t, alt, alt2, 1e-7)
			assert.InDelta(t, 0, math.Remainder(az-az2, 360), 1e-7)
		}
	}
}

func TestAltAzZenithAndPole(t *testing.T) {
	t.Parallel()

	const utc = 1.6e9
	ra, dec := ZenithPosition(52.2, 0.12, utc)
	alt, az := AltAz(ra, dec, utc, 52.2, 0.12)
	assert.InDelta(t, 90, alt, 1e-6)
	assert.InDelta(t, 0, az, 0)

	alt, _ = AltAz(0, 90, utc, 52.2, 0.12)
	assert.InDelta(t, 52.2, alt, 1e-9)
}

func TestRiseCulmSet(t *testing.T) {
	t.Parallel()

	const utc = 1565647200.0
	const lat, lng = 52.2, 0.12

	rise, culm, set, ok := RiseCulmSet(utc, 3.2, 20, lat, lng, 0)
	require.True(t, ok)
	assert.Greater(t, culm, utc)
	assert.Less(t, culm-utc, SiderealDay+1)
	assert.InDelta(t, culm-rise, set-culm, 1e-6)

	alt, _ := AltAz(3.2, 20, rise, lat, lng)
	assert.InDelta(t, 0, alt, 0.01)
	alt, _ = AltAz(3.2, 20, culm, lat, lng)
	assert.InDelta(t, 90-(lat-20), alt, 0.01)

	_, _, _, ok = RiseCulmSet(utc, 0, 85, lat, lng, 0)
	assert.False(t, ok, "circumpolar")
	_, _, _, ok = RiseCulmSet(utc, 0, -60, lat, lng, 0)
	assert.False(t, ok, "never rises")
}

func TestPrecess(t *testing.T) {
	t.Parallel()

	// Meeus example 21.b for theta Persei, with the proper motion taken out.
	jdTo := 2462088.69
	ra, dec := Precess(2+44.0/60+11.986/3600, 49+13.0/60+42.48/3600, J2000, jdTo)
	assert.InDelta(t, 2+46.0/60+10.343/3600, ra, 2e-4)
	assert.InDelta(t, 49+20.0/60+57.12/3600, dec, 2e-3)

	back, backDec := Precess(ra, dec, jdTo, J2000)
	assert.InDelta(t, 2+44.0/60+11.986/3600, back, 1e-6)
	assert.InDelta(t, 49+13.0/60+42.48/3600, backDec, 1e-5)
}
