// Package identify provides the shower and satellite identification commands
package identify

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/pipeline"
)

// Command creates the identify command with its shower and satellite
// subcommands.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify what moving-object tracks are",
	}

	cmd.AddCommand(
		jobCommand(a, "shower", "Assign meteor tracks to showers or the sporadic background",
			(*pipeline.Runner).IdentifyShowers),
		jobCommand(a, "satellite", "Match satellite tracks against orbital element sets",
			(*pipeline.Runner).IdentifySatellites),
	)
	return cmd
}

func jobCommand(a *app.Context, use, short string, job app.Job) *cobra.Command {
	var flags app.WindowFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RunJob(cmd, &flags, job)
		},
	}

	flags.Bind(cmd, true, true)
	return cmd
}
