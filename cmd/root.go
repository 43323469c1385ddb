package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/skyarchive/cmd/calibrate"
	"github.com/tphakala/skyarchive/cmd/catalogue"
	"github.com/tphakala/skyarchive/cmd/config"
	"github.com/tphakala/skyarchive/cmd/framedrops"
	"github.com/tphakala/skyarchive/cmd/identify"
	"github.com/tphakala/skyarchive/cmd/triangulate"
	"github.com/tphakala/skyarchive/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(a *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "skyarchive",
		Short:         "Astrometric analysis of meteor and satellite observations",
		Version:       a.Build.String(),
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, a); err != nil {
		panic(err)
	}

	subcommands := []*cobra.Command{
		calibrate.Command(a),
		identify.Command(a),
		framedrops.Command(a),
		triangulate.Command(a),
		catalogue.Command(a),
		config.Command(a),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flag errors were reported with usage already; from here on a failure
		// is not a usage problem.
		cmd.SilenceUsage = true

		a.ConfigFile = viper.GetString("config")
		a.Debug = a.Debug || viper.GetBool("debug")
		if err := a.LoadSettings(); err != nil {
			return err
		}
		if settingsOnly(cmd) {
			return nil
		}
		return a.Open(cmd.Context())
	}

	return rootCmd
}

// settingsOnly reports whether cmd or one of its parents skips the archive.
func settingsOnly(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[app.AnnotationSettingsOnly]; ok {
			return true
		}
	}
	return false
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, a *app.Context) error {
	rootCmd.PersistentFlags().StringVarP(&a.ConfigFile, "config", "c", "", "Path to config.yaml (default: search the standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&a.Debug, "debug", "d", false, "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
