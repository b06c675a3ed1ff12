// Package cmd wires the gazetteer command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diana-archive/gazetteer/cmd/load"
	"github.com/diana-archive/gazetteer/cmd/migrate"
	"github.com/diana-archive/gazetteer/cmd/search"
	"github.com/diana-archive/gazetteer/cmd/serve"
	"github.com/diana-archive/gazetteer/cmd/transfer"
	"github.com/diana-archive/gazetteer/cmd/version"
	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/config"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *config.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "gazetteer",
		Short:         "Multi-dimensional gazetteer search engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	versionCmd := version.Command(ctx)
	rootCmd.AddCommand(
		serve.Command(ctx),
		migrate.Command(ctx),
		load.Command(ctx),
		search.Command(ctx),
		transfer.Command(ctx),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version prints build information only
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(ctx, configFile)
	}

	return rootCmd
}

// initialize loads settings and sets up logging and error reporting before
// any subcommand runs.
func initialize(ctx *config.Context, configFile string) error {
	if configFile != "" {
		conf.SetConfigFile(configFile)
	}

	settings, err := conf.Load()
	if err != nil {
		return err
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
	}
	ctx.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if err := telemetry.Init(&settings.Telemetry.Sentry, ctx.Build); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("config_file", conf.ConfigFileUsed()),
		logger.String("version", ctx.Build.Version()))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
