package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/aqi"
	"github.com/sells-group/sprawl-cli/internal/store"
)

var aqiCmd = &cobra.Command{
	Use:   "aqi",
	Short: "Aggregate EPA daily county AQI into yearly statistics",
	Long: `Downloads the EPA daily_aqi_by_county archives for a range of years,
averages each county's daily AQI per year (with max, min and day count) and
writes aqi_data_by_county.csv to the configured output. Years that fail to
download are skipped. With --load, rows are also upserted into
sprawl.county_aqi.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAQIFlags(cmd)
		if err := cfg.Validate("aqi"); err != nil {
			return err
		}
		load, _ := cmd.Flags().GetBool("load")
		workers, _ := cmd.Flags().GetInt("workers")
		output := cfg.Local.Output
		if cmd.Flags().Changed("output") {
			output, _ = cmd.Flags().GetString("output")
		}

		log := zap.L().With(zap.String("command", "aqi"),
			zap.Int("from", cfg.AQI.FromYear), zap.Int("to", cfg.AQI.ToYear))

		days, failed, err := aqi.FetchYears(ctx, cfg.AQI.BaseURL, cfg.AQI.FromYear, cfg.AQI.ToYear, cfg.AQI.TempDir, workers)
		if err != nil {
			return err
		}
		if len(days) == 0 {
			return eris.Errorf("aqi: no data downloaded for %d-%d", cfg.AQI.FromYear, cfg.AQI.ToYear)
		}
		log.Info("daily records loaded", zap.Int("records", len(days)), zap.Ints("failed_years", failedYears(failed)))

		rows := aqi.Aggregate(days)

		var buf bytes.Buffer
		if err := aqi.WriteCSV(&buf, rows); err != nil {
			return err
		}
		out, err := initSink(ctx, output)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		uri, err := out.Put(ctx, aqi.OutputName, "text/csv", &buf)
		if err != nil {
			return err
		}

		if load {
			if err := cfg.Validate("load"); err != nil {
				return err
			}
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			as, err := aqiStore(st)
			if err != nil {
				return err
			}
			n, err := as.UpsertCountyAQI(ctx, rows)
			if err != nil {
				return err
			}
			log.Info("county AQI upserted", zap.Int64("rows", n))
		}

		fmt.Printf("Wrote %d county-years to %s\n\n", len(rows), uri)
		return formatAQISummary(os.Stdout, aqi.Summarize(rows))
	},
}

// applyAQIFlags overrides the AQI year range with any flags that were set.
func applyAQIFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("from") {
		cfg.AQI.FromYear, _ = f.GetInt("from")
	}
	if f.Changed("to") {
		cfg.AQI.ToYear, _ = f.GetInt("to")
	}
}

// aqiStore returns the county AQI side of st, which only the Postgres
// backend provides.
func aqiStore(st store.Store) (store.AQIStore, error) {
	as, ok := st.(store.AQIStore)
	if !ok {
		return nil, eris.Errorf("store driver %q cannot hold county AQI; use postgres", cfg.Store.Driver)
	}
	return as, nil
}

func failedYears(failed map[int]error) []int {
	years := make([]int, 0, len(failed))
	for y := range failed {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// formatAQISummary prints one line per year.
func formatAQISummary(out io.Writer, sum []aqi.YearSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tCOUNTIES\tAVG AQI\tMAX AQI\tMIN AQI\tDAYS")
	_, _ = fmt.Fprintln(w, "----\t--------\t-------\t-------\t-------\t----")
	for _, s := range sum {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%.2f\t%.0f\t%.0f\t%d\n",
			s.Year, s.Counties, s.AvgAQI, s.MaxAQI, s.MinAQI, s.Days)
	}
	return w.Flush()
}

func init() {
	aqiCmd.Flags().Int("from", 0, "first year (default: from config)")
	aqiCmd.Flags().Int("to", 0, "last year (default: from config)")
	aqiCmd.Flags().String("output", "", "comma-separated destinations (default: local.output)")
	aqiCmd.Flags().Int("workers", 2, "years downloaded at once")
	aqiCmd.Flags().Bool("load", false, "upsert rows into sprawl.county_aqi (postgres store)")
	rootCmd.AddCommand(aqiCmd)
}
