// Package calibrate provides the calibrate command
package calibrate

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/pipeline"
)

// Command creates the calibrate command.
func Command(a *app.Context) *cobra.Command {
	var flags app.WindowFlags

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit lens distortion and pointing to timelapse star lists",
		Long: `Calibrate fits the lens distortion and pointing of every timelapse image
in the window that carries a star list, writes the fit onto the image and
records nightly average orientations on the observatory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RunJob(cmd, &flags, (*pipeline.Runner).Calibrate)
		},
	}

	flags.Bind(cmd, true, false)
	return cmd
}
