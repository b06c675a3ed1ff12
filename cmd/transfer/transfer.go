// Package transfer implements the database copy command.
package transfer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/config"
	"github.com/diana-archive/gazetteer/internal/datastore"
	dbtransfer "github.com/diana-archive/gazetteer/internal/datastore/transfer"
	"github.com/diana-archive/gazetteer/internal/errors"
)

// Command creates the transfer command.
func Command(ctx *config.Context) *cobra.Command {
	target := conf.DatabaseSettings{}
	var (
		batchSize  int
		skipVerify bool
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Copy the gazetteer into another database",
		Long: "Copy every table of the configured database into a target database, keeping\n" +
			"primary keys, then compare row counts. Rows already in the target are skipped,\n" +
			"so an interrupted transfer can be run again.",
		Example: "  gazetteer transfer --target-type mysql --target-host db.example.org --target-password \"$PASS\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			target.ForeignKeys = true
			target.SlowQuery = ctx.Settings.Database.SlowQuery
			return run(cmd, ctx, &target, batchSize, skipVerify)
		},
	}

	f := cmd.Flags()
	f.StringVar(&target.Type, "target-type", "mysql", "Target database type: sqlite or mysql")
	f.StringVar(&target.SQLite.Path, "target-path", "", "Target SQLite file")
	f.StringVar(&target.SQLite.Driver, "target-driver", "sqlite3", "Target SQLite driver: sqlite3 or sqlite")
	f.StringVar(&target.MySQL.Host, "target-host", "localhost", "Target MySQL host")
	f.StringVar(&target.MySQL.Port, "target-port", "3306", "Target MySQL port")
	f.StringVar(&target.MySQL.Username, "target-user", "gazetteer", "Target MySQL username")
	f.StringVar(&target.MySQL.Password, "target-password", os.Getenv("GAZETTEER_TARGET_PASSWORD"), "Target MySQL password")
	f.StringVar(&target.MySQL.Database, "target-database", "gazetteer", "Target MySQL database")
	f.IntVar(&batchSize, "batch-size", dbtransfer.DefaultBatchSize, "Rows per batch")
	f.BoolVar(&skipVerify, "skip-verify", false, "Skip the row count comparison")

	return cmd
}

func run(cmd *cobra.Command, ctx *config.Context, targetSettings *conf.DatabaseSettings, batchSize int, skipVerify bool) error {
	defer func() { _ = ctx.Close() }()

	if strings.EqualFold(targetSettings.Type, "sqlite") && targetSettings.SQLite.Path == "" {
		return errors.Newf("--target-path is required for a sqlite target").
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}

	source, err := ctx.Database(false)
	if err != nil {
		return err
	}
	target, err := datastore.Open(targetSettings)
	if err != nil {
		return err
	}
	defer func() { _ = target.Close() }()

	tr, err := dbtransfer.New(source, target, dbtransfer.WithBatchSize(batchSize))
	if err != nil {
		return err
	}

	report, err := tr.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-30s %10s %10s %12s\n", "Table", "Copied", "Skipped", "Duration")
	for _, t := range report.Tables {
		fmt.Fprintf(out, "%-30s %10d %10d %12s\n", t.Name, t.Copied, t.Skipped, t.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "%d rows copied to %s in %s\n", report.Copied(), target.Path(), report.Duration.Round(time.Millisecond))

	if skipVerify {
		return nil
	}
	mismatches, err := tr.Verify(cmd.Context())
	if err != nil {
		return err
	}
	for _, m := range mismatches {
		fmt.Fprintf(out, "count mismatch in %s: source %d, target %d\n", m.Table, m.Source, m.Target)
	}
	if len(mismatches) > 0 {
		return errors.Newf("%d tables differ after transfer", len(mismatches)).
			Component("transfer").
			Category(errors.CategoryDatabase).
			Build()
	}
	fmt.Fprintln(out, "verification passed")
	return nil
}
