// Package framedrops provides the framedrops command
package framedrops

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/pipeline"
)

// Command creates the framedrops command.
func Command(a *app.Context) *cobra.Command {
	var flags app.WindowFlags

	cmd := &cobra.Command{
		Use:   "framedrops",
		Short: "Find frames lost during capture of moving-object tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RunJob(cmd, &flags, (*pipeline.Runner).DetectFrameDrops)
		},
	}

	flags.Bind(cmd, true, false)
	return cmd
}
