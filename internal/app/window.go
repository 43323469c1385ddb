package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/pipeline"
)

// WindowFlags are the time-window flags shared by every job command.
type WindowFlags struct {
	ObservatoryID string
	UTCMin        string
	UTCMax        string
	Flush         bool
	All           bool
	Deadline      time.Duration
}

// Bind registers the flags on cmd. observatory and all are only added when
// the job uses them.
func (f *WindowFlags) Bind(cmd *cobra.Command, observatory, all bool) {
	cmd.Flags().StringVar(&f.UTCMin, "utc-min", "0", "Start of the window: unix seconds or RFC 3339")
	cmd.Flags().StringVar(&f.UTCMax, "utc-max", "now", "End of the window: unix seconds, RFC 3339 or \"now\"")
	cmd.Flags().BoolVar(&f.Flush, "flush", false, "Delete earlier results in the window before recomputing")
	cmd.Flags().DurationVar(&f.Deadline, "deadline", 0, "Stop starting new work after this long (0 uses pipeline.deadline)")
	if observatory {
		cmd.Flags().StringVar(&f.ObservatoryID, "observatory", "", "Only process this observatory")
	}
	if all {
		cmd.Flags().BoolVar(&f.All, "all", false, "Process every track regardless of its category")
	}
}

// Window converts the flags into a pipeline window. now is the reference for
// "now" and for the deadline.
func (f *WindowFlags) Window(now time.Time) (pipeline.Window, error) {
	tMin, err := ParseUTC(f.UTCMin, now)
	if err != nil {
		return pipeline.Window{}, err
	}
	tMax, err := ParseUTC(f.UTCMax, now)
	if err != nil {
		return pipeline.Window{}, err
	}
	if tMax < tMin {
		return pipeline.Window{}, errors.Newf("--utc-max %s is before --utc-min %s", f.UTCMax, f.UTCMin).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	w := pipeline.Window{
		ObservatoryID: f.ObservatoryID,
		TimeMin:       tMin,
		TimeMax:       tMax,
		Flush:         f.Flush,
		All:           f.All,
	}
	if f.Deadline > 0 {
		w.MustStop = now.Add(f.Deadline)
	}
	return w, nil
}

// ParseUTC reads a time given as unix seconds, an RFC 3339 timestamp or the
// word "now".
func ParseUTC(s string, now time.Time) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "now") {
		return float64(now.UnixNano()) / 1e9, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, errors.Newf("cannot read %q as a time: want unix seconds or RFC 3339", s).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return float64(t.UnixNano()) / 1e9, nil
}
