package refdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
)

func TestLoadFallsBackToEmbedded(t *testing.T) {
	t.Parallel()

	cat, err := Load(&conf.RefDataSettings{
		Cameras: "/nonexistent/cameras.xml",
		Lenses:  "/nonexistent/lenses.xml",
		Showers: "/nonexistent/meteor_showers.xml",
	})
	require.NoError(t, err)

	cam, ok := cat.Cameras["pi_camera_v2"]
	require.True(t, ok)
	assert.Equal(t, 1280, cam.Width)
	assert.True(t, cam.UpsideDown)

	lens, ok := cat.Lenses["fisheye_2.1mm"]
	require.True(t, ok)
	assert.Equal(t, [3]float64{-0.25, 0.05, -0.004}, lens.Barrel)
	assert.Equal(t, [3]float64{}, cat.Lenses["ideal_40x30"].Barrel)

	assert.Len(t, cat.Showers, 13)
}

func TestLoadMissingWithoutFallback(t *testing.T) {
	t.Parallel()

	_, err := LoadFile("/nonexistent/hipparcos.json", ParseHipparcos)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestParseShowersWindows(t *testing.T) {
	t.Parallel()

	showers, err := LoadFile("meteor_showers.xml", ParseShowers)
	require.NoError(t, err)

	byCode := make(map[string]Shower)
	for _, s := range showers {
		byCode[s.IAUCode] = s
	}

	per := byCode["PER"]
	assert.Equal(t, "Perseids", per.Name)
	assert.InDelta(t, 140.0, per.PeakSolarLongitude, 0)
	assert.InDelta(t, -26, per.StartOffset, 0)
	assert.InDelta(t, 12, per.EndOffset, 0)
	assert.InDelta(t, 3.2, per.RadiantRA, 1e-12)
	assert.InDelta(t, 58, per.RadiantDec, 0)
	assert.InDelta(t, 110, per.PeakZHR, 0)

	qua := byCode["QUA"]
	assert.InDelta(t, -7, qua.StartOffset, 0, "window spans the new year")
	assert.InDelta(t, 8, qua.EndOffset, 0)

	assert.Zero(t, byCode["DRA"].PeakZHR)
	assert.True(t, byCode["DRA"].VariableZHR)
	assert.False(t, per.VariableZHR)
}

func TestParseShowersZHR(t *testing.T) {
	t.Parallel()

	doc := func(zhr string) string {
		return `<meteor_shower_list><shower><IAU_code>XXX</IAU_code><name>X</name>
		<start>Aug 1</start><end>Aug 3</end><peak>Aug 2</peak><pos>1</pos><ra>1</ra><de>1</de><v>1</v><zhr>` +
			zhr + `</zhr></shower></meteor_shower_list>`
	}

	zero, err := ParseShowers(strings.NewReader(doc("0")))
	require.NoError(t, err)
	require.Len(t, zero, 1)
	assert.False(t, zero[0].VariableZHR, "a listed zero is a known rate")

	variable, err := ParseShowers(strings.NewReader(doc(" VAR ")))
	require.NoError(t, err)
	require.Len(t, variable, 1)
	assert.True(t, variable[0].VariableZHR)
	assert.Zero(t, variable[0].PeakZHR)

	_, err = ParseShowers(strings.NewReader(doc("lots")))
	require.Error(t, err)
}

func TestParseShowersRejectsBadDate(t *testing.T) {
	t.Parallel()

	_, err := ParseShowers(strings.NewReader(`<meteor_shower_list><shower><name>X</name>
		<start>Foo 1</start><end>Aug 2</end><peak>Aug 1</peak><pos>1</pos><ra>1</ra><de>1</de><v>1</v><zhr>1</zhr>
		</shower></meteor_shower_list>`))
	require.Error(t, err)
}

func TestParseBarrel(t *testing.T) {
	t.Parallel()

	b, err := ParseBarrel("[-0.1]")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{-0.1, 0, 0}, b)

	_, err = ParseBarrel("[1,2,3,4]")
	require.Error(t, err)
	_, err = ParseBarrel(`{"k1": 1}`)
	require.Error(t, err)
	_, err = ParseBarrel(`["a"]`)
	require.Error(t, err)
}

func TestParseObservatories(t *testing.T) {
	t.Parallel()

	obs, err := LoadFile("testdata/known_observatories.xml", ParseObservatories)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "eddington0", obs[0].ID)
	assert.Equal(t, "ideal_40x30", obs[0].Lens)
	assert.InDelta(t, 52.1, obs[1].Latitude, 0)

	_, err = ParseObservatories(strings.NewReader(`<o><obstory><obstory_id>a</obstory_id></obstory>
		<obstory><obstory_id>a</obstory_id></obstory></o>`))
	require.Error(t, err)
}

func TestParseHipparcos(t *testing.T) {
	t.Parallel()

	stars, err := LoadFile("testdata/hipparcos.json", ParseHipparcos)
	require.NoError(t, err)
	require.Len(t, stars, 5)
	sirius := stars[32349]
	assert.InDelta(t, 6.752481, sirius.RA, 0)
	assert.InDelta(t, -16.716116, sirius.Dec, 0)

	_, err = ParseHipparcos(strings.NewReader(`{"x": [1, 2]}`))
	require.Error(t, err)
	_, err = ParseHipparcos(strings.NewReader(`{"1": [1]}`))
	require.Error(t, err)
}

func TestParseSatellites(t *testing.T) {
	t.Parallel()

	rows, err := LoadFile("testdata/satellites.json", ParseSatellites)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	iss := rows[0]
	assert.Equal(t, 25544, iss.NoradID)
	assert.Equal(t, "ISS (ZARYA)", iss.Name)
	assert.InDelta(t, 15.49403446, iss.MeanMotion, 0)
	assert.Nil(t, iss.DecayDate)
	assert.False(t, iss.Debris)
	assert.Equal(t, 22928, iss.RevolutionNum)
	assert.True(t, rows[1].Debris)

	_, err = ParseSatellites(strings.NewReader(`[{"norad_id": 1, "epoch": 0, "mean_motion": 0,
		"eccentricity": 0, "inclination": 0, "raan": 0, "arg_perigee": 0, "mean_anomaly": 0, "bstar": 0}]`))
	require.Error(t, err)
}

func TestParseSatellitesShapes(t *testing.T) {
	t.Parallel()

	const row = `{"norad_id": 43013, "name": "NOAA 20", "epoch": 1700000000,
		"mean_motion": 14.19, "eccentricity": 0.0001, "inclination": 98.7,
		"raan": 10, "arg_perigee": 90, "mean_anomaly": 270, "bstar": 0.0001}`

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "single row", input: "[" + row + "]", want: 1},
		{name: "empty list", input: "[]", want: 0},
		{name: "not a list", input: row, wantErr: true},
		{name: "row is not an object", input: "[" + row + ", 42]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := ParseSatellites(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, rows, tt.want)
			if tt.want > 0 {
				assert.Equal(t, 43013, rows[0].NoradID)
				assert.Equal(t, "NOAA 20", rows[0].Name)
			}
		})
	}
}
