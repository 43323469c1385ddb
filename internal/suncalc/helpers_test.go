package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Cambridge, UK
const (
	testLatitude  = 52.2
	testLongitude = 0.12
)

func newTestSunCalc(t *testing.T, twilight string) *SunCalc {
	t.Helper()
	sc, err := NewSunCalc(testLatitude, testLongitude, twilight)
	require.NoError(t, err)
	return sc
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}
