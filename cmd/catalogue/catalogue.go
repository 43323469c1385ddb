// Package catalogue provides the reference-data import commands
package catalogue

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
)

// Command creates the catalogue command.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Import reference data into the archive",
	}

	cmd.AddCommand(observatoriesCommand(a), satellitesCommand(a))
	return cmd
}

func observatoriesCommand(a *app.Context) *cobra.Command {
	var path, since string

	cmd := &cobra.Command{
		Use:   "observatories",
		Short: "Register the known observatories with their cameras and lenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.Settings.RefData.Observatories
			}
			utc, err := app.ParseUTC(since, time.Now())
			if err != nil {
				return err
			}
			n, err := a.Runner().ImportObservatories(cmd.Context(), path, utc)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d observatories from %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "known_observatories.xml to import (default: refdata.observatories)")
	cmd.Flags().StringVar(&since, "since", "0", "Time from which the listed camera and lens apply")
	return cmd
}

func satellitesCommand(a *app.Context) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "satellites",
		Short: "Import orbital element sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.Settings.RefData.Satellites
			}
			n, err := a.Runner().ImportSatellites(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d element sets from %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "Element catalogue JSON to import (default: refdata.satellites)")
	return cmd
}
