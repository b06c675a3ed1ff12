// Package serve implements the HTTP API command.
package serve

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diana-archive/gazetteer/internal/api"
	"github.com/diana-archive/gazetteer/internal/config"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/telemetry"
)

const sentryFlushTimeout = 2 * time.Second

// Command creates the serve command.
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API",
		Long:  "Migrate the database if needed and serve the GeoJSON search API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), ctx)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("port", "8080", "Port to listen on")
	cmd.Flags().Bool("readonly", true, "Disable the DELETE routes")

	for key, flag := range map[string]string{
		"webserver.port":     "port",
		"webserver.readonly": "readonly",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

func run(parent context.Context, ctx *config.Context) error {
	defer telemetry.Flush(sentryFlushTimeout)
	defer func() { _ = ctx.Close() }()

	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := context.WithCancel(parent)
	defer cancel()

	manager, err := ctx.Database(true)
	if err != nil {
		return err
	}
	svc, err := ctx.SearchService()
	if err != nil {
		return err
	}
	metrics, err := ctx.Metrics()
	if err != nil {
		return err
	}

	go ctx.MonitorDatabase(runCtx)

	db := manager.DB()
	opts := []api.ServerOption{
		api.WithLogger(logger.Global().Module("api")),
		api.WithManager(manager),
		api.WithSearch(svc),
		api.WithRepositories(repository.NewPlaceRepository(db), repository.NewReferenceRepository(db)),
	}
	if metrics != nil {
		opts = append(opts, api.WithMetrics(metrics))
	}

	server, err := api.New(ctx.Settings, opts...)
	if err != nil {
		return err
	}
	return server.StartWithGracefulShutdown(runCtx)
}
