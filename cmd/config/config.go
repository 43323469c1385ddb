// Package config provides the config command
package config

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/skyarchive/internal/app"
	"github.com/tphakala/skyarchive/internal/conf"
)

// Command creates the config command.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect the configuration",
		Annotations: map[string]string{app.AnnotationSettingsOnly: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.Dump(a.Settings)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
