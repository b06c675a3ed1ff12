// Package load implements the GeoJSON import command.
package load

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/diana-archive/gazetteer/internal/config"
	"github.com/diana-archive/gazetteer/internal/importer"
)

// Command creates the import command.
func Command(ctx *config.Context) *cobra.Command {
	var (
		layerArgs []string
		seedFile  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import GeoJSON layers",
		Long: "Seed reference data and import GeoJSON layers. Each --layer gives the place type\n" +
			"of its features, e.g. --layer street=streets.geojson. Running an import twice\n" +
			"changes nothing.",
		Example: "  gazetteer import --layer street=streets.geojson --layer building=buildings.geojson",
		RunE: func(cmd *cobra.Command, args []string) error {
			layers := make([]importer.Layer, 0, len(layerArgs))
			for _, arg := range layerArgs {
				layer, err := importer.ParseLayer(arg)
				if err != nil {
					return err
				}
				layers = append(layers, layer)
			}
			return run(cmd, ctx, layers, seedFile)
		},
	}

	cmd.Flags().StringArrayVarP(&layerArgs, "layer", "l", nil, "Layer to import as type=path, repeatable")
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML reference data seed, overrides import.seedfile")

	return cmd
}

func run(cmd *cobra.Command, ctx *config.Context, layers []importer.Layer, seedFile string) error {
	defer func() { _ = ctx.Close() }()

	settings := ctx.Settings.Import
	if seedFile == "" {
		seedFile = settings.SeedFile
	}

	fs := afero.NewOsFs()
	seed, err := importer.LoadSeed(fs, seedFile)
	if err != nil {
		return err
	}

	manager, err := ctx.Database(true)
	if err != nil {
		return err
	}
	svc, err := ctx.SearchService()
	if err != nil {
		return err
	}

	opts := []importer.Option{importer.WithInvalidator(svc.Invalidate)}
	metrics, err := ctx.Metrics()
	if err != nil {
		return err
	}
	if metrics != nil {
		opts = append(opts, importer.WithMetrics(metrics.Import))
	}

	report, err := importer.New(manager.DB(), fs, &settings, opts...).Run(cmd.Context(), seed, layers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "import %s: %d created, %d updated, %d skipped in %s\n",
		report.RunID, report.Created, report.Updated, report.Skipped, report.Duration.Round(time.Millisecond))
	for placeType, n := range report.ByType {
		fmt.Fprintf(out, "  %s: %d\n", placeType, n)
	}
	return nil
}
