package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/pipeline"
)

// AnnotationSettingsOnly marks a command that loads configuration but never
// opens the archive.
const AnnotationSettingsOnly = "skyarchive/settings-only"

// Job is a pipeline stage, usually a method expression such as
// (*pipeline.Runner).Calibrate.
type Job func(r *pipeline.Runner, ctx context.Context, w pipeline.Window) (*pipeline.Report, error)

// RunJob runs job over the window described by flags and prints its report.
// Per-observation failures only show up in the report; the returned error is
// for failures of the run itself.
func (c *Context) RunJob(cmd *cobra.Command, flags *WindowFlags, job Job) error {
	w, err := flags.Window(time.Now())
	if err != nil {
		return err
	}
	report, err := job(c.Runner(), cmd.Context(), w)
	if report != nil {
		PrintReport(cmd.OutOrStdout(), report)
	}
	return err
}

// PrintReport writes a one-run summary.
func PrintReport(out io.Writer, r *pipeline.Report) {
	_, _ = fmt.Fprintf(out, "%s run %s: %d items in %s\n", r.Stage, r.RunID, r.Total(), r.Duration.Round(time.Millisecond))
	for _, k := range slices.Sorted(maps.Keys(r.Outcomes)) {
		_, _ = fmt.Fprintf(out, "  %-10s %d\n", k, r.Outcomes[k])
	}
	for _, k := range slices.Sorted(maps.Keys(r.Errors)) {
		_, _ = fmt.Fprintf(out, "  error %-30s %d\n", k, r.Errors[k])
	}
	if r.Rescued > 0 {
		_, _ = fmt.Fprintf(out, "  rescued tracks %d\n", r.Rescued)
	}
	if r.Flushed > 0 {
		_, _ = fmt.Fprintf(out, "  flushed records %d\n", r.Flushed)
	}
	if r.Stopped {
		_, _ = fmt.Fprintln(out, "  stopped at deadline before every item was started")
	}
}
