package shower

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/astro/ephemeris"
	"github.com/tphakala/skyarchive/internal/astro/projection"
	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/obstory"
	"github.com/tphakala/skyarchive/internal/refdata"
	"github.com/tphakala/skyarchive/internal/track"
)

func loadShowers(t *testing.T) []refdata.Shower {
	t.Helper()
	showers, err := refdata.LoadFile("meteor_showers.xml", refdata.ParseShowers)
	require.NoError(t, err)
	return showers
}

// peakTime returns the instant in 2020 when the Sun reaches solar longitude lambda.
func peakTime(lambda float64) float64 {
	utc := 1577836800 + math.Mod(lambda-280+360, 360)/360*daysPerYear*86400
	for range 8 {
		diff := math.Remainder(lambda-ephemeris.SolarLongitude(utc), 360)
		utc += diff / 360 * daysPerYear * 86400
	}
	return utc
}

// alongGreatCircle returns the sky position dist degrees from (raH, decD) at
// position angle pa degrees.
func alongGreatCircle(raH, decD, dist, pa float64) track.SkyPos {
	ra, dec := projection.FromZenithal(dist*deg, pa*deg, raH*15*deg, decD*deg)
	return track.SkyPos{RA: ra / deg / 15, Dec: dec / deg}
}

func TestScenarioPerseid(t *testing.T) {
	t.Parallel()

	const utc = 1565647200.0 // 2019-08-12T22:00:00Z
	p := &obstory.Pointing{
		Altitude: 60, Azimuth: 90,
		AngWidth: 40, AngHeight: 30,
		PixelWidth: 1280, PixelHeight: 720,
		Latitude: 52.2, Longitude: 0.12,
	}

	var per refdata.Shower
	for _, s := range loadShowers(t) {
		if s.IAUCode == "PER" {
			per = s
		}
	}
	radRA, radDec := ephemeris.PrecessFromJ2000(per.RadiantRA, per.RadiantDec, utc)

	// Start at the field centre and run 10° further from the radiant.
	cRA, cDec := p.FieldCentre(utc)
	dist := projection.AngDist(radRA*15*deg, radDec*deg, cRA*15*deg, cDec*deg) / deg
	pa := projection.PositionAngle(radRA*15*deg, radDec*deg, cRA*15*deg, cDec*deg) / deg
	end := alongGreatCircle(radRA, radDec, dist+10, pa)

	x1, y1, ok := track.SkyToPixel(p, end.RA, end.Dec, utc+1)
	require.True(t, ok)

	samples := make([]track.Sample, 10)
	for i := range samples {
		f := float64(i) / 9
		samples[i] = track.Sample{X: 640 + (x1-640)*f, Y: 360 + (y1-360)*f, UTC: utc + f}
	}
	tr := track.ProjectSamples(p, samples)

	res, err := NewIdentifier(loadShowers(t), conf.ShowerSettings{}).Identify(tr.Sky, utc, p.Latitude, p.Longitude)
	require.NoError(t, err)

	best := res.Best()
	assert.Equal(t, "Perseids", best.Name)
	assert.LessOrEqual(t, best.RadiantOffset, 3.0)

	var total float64
	for _, c := range res.Candidates {
		total += c.Likelihood
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestIdentifyAlignedTracksNearPeak(t *testing.T) {
	t.Parallel()

	showers := loadShowers(t)
	id := NewIdentifier(showers, conf.ShowerSettings{})

	for _, s := range showers {
		if s.VariableZHR {
			continue
		}
		t.Run(s.IAUCode, func(t *testing.T) {
			t.Parallel()

			var total, hits int
			for _, dayOffset := range []float64{-0.9, 0, 0.9} {
				utc := peakTime(s.PeakSolarLongitude) + dayOffset*86400
				raH, decD := ephemeris.PrecessFromJ2000(s.RadiantRA, s.RadiantDec, utc)
				// Put the radiant at the zenith.
				lat := decD
				lng := math.Remainder((raH-ephemeris.SiderealTime(utc))*15, 360)

				for k := range 12 {
					pa := 15 + 30*float64(k)
					path := []track.SkyPos{
						alongGreatCircle(raH, decD, 15, pa),
						alongGreatCircle(raH, decD, 25, pa+1),
					}
					res, err := id.Identify(path, utc, lat, lng)
					require.NoError(t, err)
					total++
					if res.Best().IAUCode == s.IAUCode {
						hits++
					}
				}
			}
			assert.GreaterOrEqual(t, float64(hits), 0.9*float64(total), "%d of %d", hits, total)
		})
	}
}

func TestIdentifyRejections(t *testing.T) {
	t.Parallel()

	per := refdata.Shower{
		IAUCode: "PER", Name: "Perseids", PeakSolarLongitude: 140,
		StartOffset: -26, EndOffset: 12, RadiantRA: 3.2, RadiantDec: 58, PeakZHR: 110,
	}
	id := NewIdentifier([]refdata.Shower{per}, conf.ShowerSettings{})

	utc := peakTime(140)
	raH, decD := ephemeris.PrecessFromJ2000(per.RadiantRA, per.RadiantDec, utc)
	lng := math.Remainder((raH-ephemeris.SiderealTime(utc))*15, 360)
	away := []track.SkyPos{alongGreatCircle(raH, decD, 15, 40), alongGreatCircle(raH, decD, 25, 40)}

	t.Run("towards radiant", func(t *testing.T) {
		res, err := id.Identify([]track.SkyPos{away[1], away[0]}, utc, decD, lng)
		require.NoError(t, err)
		assert.True(t, res.Best().IsSporadic())
		assert.Len(t, res.Candidates, 1)
	})

	t.Run("radiant below horizon", func(t *testing.T) {
		res, err := id.Identify(away, utc, -decD, lng+180)
		require.NoError(t, err)
		assert.True(t, res.Best().IsSporadic())
	})

	t.Run("out of season", func(t *testing.T) {
		res, err := id.Identify(away, utc+100*86400, decD, lng)
		require.NoError(t, err)
		assert.True(t, res.Best().IsSporadic())
	})

	t.Run("off peak uses background rate", func(t *testing.T) {
		res, err := id.Identify(away, utc-10*86400, decD, lng)
		require.NoError(t, err)
		for _, c := range res.Candidates {
			if c.IAUCode == "PER" {
				assert.LessOrEqual(t, c.HourlyRate, 5.0)
			}
		}
	})

	t.Run("degenerate path", func(t *testing.T) {
		_, err := id.Identify(away[:1], utc, decD, lng)
		require.Error(t, err)
		_, err = id.Identify([]track.SkyPos{away[0], away[0]}, utc, decD, lng)
		require.Error(t, err)
	})
}

func TestIdentifyVariableRateShower(t *testing.T) {
	t.Parallel()

	dra := refdata.Shower{
		IAUCode: "DRA", Name: "Draconids", PeakSolarLongitude: 195.4,
		StartOffset: -2, EndOffset: 2, RadiantRA: 17.6, RadiantDec: 54, VariableZHR: true,
	}
	id := NewIdentifier([]refdata.Shower{dra}, conf.ShowerSettings{})

	utc := peakTime(195.4)
	raH, decD := ephemeris.PrecessFromJ2000(dra.RadiantRA, dra.RadiantDec, utc)
	lng := math.Remainder((raH-ephemeris.SiderealTime(utc))*15, 360)
	away := []track.SkyPos{alongGreatCircle(raH, decD, 15, 40), alongGreatCircle(raH, decD, 25, 40)}

	res, err := id.Identify(away, utc, decD, lng)
	require.NoError(t, err)
	var found bool
	for _, c := range res.Candidates {
		if c.IAUCode == "DRA" {
			found = true
			assert.InDelta(t, 5.0, c.HourlyRate, 0.1, "off-peak rate at the listed peak")
		}
	}
	assert.True(t, found, "a variable-rate shower is still a candidate in its window")

	res, err = id.Identify(away, utc+5*86400, decD, lng)
	require.NoError(t, err)
	assert.True(t, res.Best().IsSporadic())
	assert.Len(t, res.Candidates, 1)
}
