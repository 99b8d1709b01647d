package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/export"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

var loadCmd = &cobra.Command{
	Use:   "load <table.csv>",
	Short: "Upsert an exported county statistics CSV into Postgres",
	Long: `Reads a CSV produced by "export" or "local" and upserts it into
sprawl.county_stats keyed by (fips, year). Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("load"); err != nil {
			return err
		}

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0]) // #nosec G304 -- user-supplied input path
			if err != nil {
				return eris.Wrap(err, "load: open table")
			}
			defer f.Close() //nolint:errcheck
			r = f
		}

		rows, err := export.ReadCSV(r)
		if err != nil {
			return err
		}
		rows = normalizeRows(rows)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ss, err := statsStore(st)
		if err != nil {
			return err
		}
		n, err := ss.UpsertCountyStats(ctx, rows)
		if err != nil {
			return err
		}

		zap.L().Info("county statistics loaded",
			zap.String("command", "load"),
			zap.String("file", args[0]),
			zap.Int64("rows", n),
		)
		fmt.Printf("Upserted %d county rows\n", n)
		return nil
	},
}

// normalizeRows re-pads identifiers that spreadsheet round trips tend to
// strip (e.g. STATEFP "6") and rebuilds fips from them.
func normalizeRows(rows []sprawl.CountyStat) []sprawl.CountyStat {
	for i := range rows {
		rows[i].StateFP, rows[i].CountyFP, rows[i].FIPS = sprawl.NormalizeFIPS(rows[i].StateFP, rows[i].CountyFP)
	}
	return rows
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
