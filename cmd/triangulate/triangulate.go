// Package triangulate provides the triangulate command
package triangulate

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/pipeline"
)

// Command creates the triangulate command.
func Command(a *app.Context) *cobra.Command {
	var flags app.WindowFlags

	cmd := &cobra.Command{
		Use:   "triangulate",
		Short: "Group simultaneous detections and fit their trajectories",
		Long: `Triangulate finds tracks seen from more than one observatory at the same
time, records each set as a simultaneous-detection group and fits a straight
trajectory through the sight lines. Groups already in the window are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.RunJob(cmd, &flags, (*pipeline.Runner).Triangulate)
		},
	}

	flags.Bind(cmd, true, false)
	_ = cmd.Flags().MarkHidden("flush")
	return cmd
}
