// Package migrate implements the schema migration command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diana-archive/gazetteer/internal/config"
)

// Command creates the migrate command.
func Command(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = ctx.Close() }()

			manager, err := ctx.Database(true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", manager.Path())
			return nil
		},
	}
}
