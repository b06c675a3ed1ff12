// Package search implements the command line search.
package search

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	v2 "github.com/diana-archive/gazetteer/internal/api/v2"
	"github.com/diana-archive/gazetteer/internal/config"
	"github.com/diana-archive/gazetteer/internal/errors"
	engine "github.com/diana-archive/gazetteer/internal/search"
)

// Command creates the search command.
func Command(ctx *config.Context) *cobra.Command {
	var exact bool

	cmd := &cobra.Command{
		Use:   "search [param=value...]",
		Short: "Search places and print GeoJSON",
		Long: "Run a search with the same parameters as GET /api/v2/places and print the\n" +
			"resulting FeatureCollection.",
		Example: "  gazetteer search language=kinyarwanda place_type=street q=kimihurura page_size=5",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseArgs(args)
			if err != nil {
				return err
			}
			mode := engine.MatchSubstring
			if exact {
				mode = engine.MatchExact
			}
			return run(cmd, ctx, values, mode)
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "Match text criteria exactly instead of by substring")

	return cmd
}

// parseArgs turns param=value arguments into query values.
func parseArgs(args []string) (url.Values, error) {
	values := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Newf("invalid argument %q, expected param=value", arg).
				Component("cli").
				Category(errors.CategoryValidation).
				Build()
		}
		values.Add(key, value)
	}
	return values, nil
}

func run(cmd *cobra.Command, ctx *config.Context, values url.Values, mode engine.MatchMode) error {
	defer func() { _ = ctx.Close() }()

	req, err := engine.RequestFromValues(values, mode)
	if err != nil {
		return err
	}
	svc, err := ctx.SearchService()
	if err != nil {
		return err
	}
	res, err := svc.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v2.NewFeatureCollection(res))
}
