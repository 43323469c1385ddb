package app

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/skyarchive/internal/errors"
)

func TestParseUTC(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, 8, 13, 2, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1597273200.5", want: 1597273200.5},
		{in: "2020-08-12T23:00:00Z", want: 1597273200},
		{in: "2020-08-13T01:00:00+02:00", want: 1597273200},
		{in: "now", want: 1597284000},
		{in: " NOW ", want: 1597284000},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseUTC(tt.in, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestWindowFlags(t *testing.T) {
	t.Parallel()

	var f WindowFlags
	cmd := &cobra.Command{Use: "calibrate"}
	f.Bind(cmd, true, false)
	require.NoError(t, cmd.ParseFlags([]string{
		"--observatory", "eddington0",
		"--utc-min", "1597273200",
		"--utc-max", "1597359600",
		"--flush",
		"--deadline", "30m",
	}))
	assert.Nil(t, cmd.Flags().Lookup("all"))

	now := time.Date(2020, 8, 14, 0, 0, 0, 0, time.UTC)
	w, err := f.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "eddington0", w.ObservatoryID)
	assert.InDelta(t, 1597273200, w.TimeMin, 0)
	assert.InDelta(t, 1597359600, w.TimeMax, 0)
	assert.True(t, w.Flush)
	assert.False(t, w.All)
	assert.Equal(t, now.Add(30*time.Minute), w.MustStop)
}

func TestWindowFlagsRejectsReversedWindow(t *testing.T) {
	t.Parallel()

	f := WindowFlags{UTCMin: "200", UTCMax: "100"}
	_, err := f.Window(time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
