package main

import (
	"bytes"
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/export"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
	"github.com/sells-group/sprawl-cli/internal/store"
	"github.com/sells-group/sprawl-cli/internal/tiger"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Compute county statistics in-process from a local land cover grid",
	Long: `Runs the same five stages as the Earth Engine export against a local ESRI
ASCII land cover grid and a TIGER county shapefile, then writes the table to
every configured destination (file://, gs:// or s3://).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyLocalFlags(cmd)
		if err := cfg.Validate("local"); err != nil {
			return err
		}
		format, err := export.ParseFormat(cfg.Local.Format)
		if err != nil {
			return err
		}

		opts := sprawl.LocalOptions{
			Year:       yearFlag(cmd, cfg.Pipeline),
			RasterDir:  cfg.Local.RasterDir,
			RasterName: cfg.Local.RasterName,
			Geographic: cfg.Local.Geographic,
			Scale:      cfg.Pipeline.Scale,
			TileScale:  cfg.Pipeline.TileScale,
			SimplifyM:  cfg.Pipeline.SimplifyM,
		}
		load, _ := cmd.Flags().GetBool("load")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run := &store.Run{
			Year:        opts.Year,
			Backend:     store.BackendLocal,
			Description: sprawl.ExportDescription(cfg.Export.DescriptionPrefix, opts.Year),
			State:       store.RunStateRunning,
		}
		if err := st.CreateRun(ctx, run); err != nil {
			return eris.Wrap(err, "local: record run")
		}

		if err := runLocal(ctx, st, run, opts, format, load); err != nil {
			recordFailure(ctx, st, run, err)
			return err
		}

		fmt.Printf("Wrote %d counties to %s\n", run.Rows, run.Destination)
		return nil
	},
}

func runLocal(ctx context.Context, st store.Store, run *store.Run, opts sprawl.LocalOptions, format export.Format, load bool) error {
	log := zap.L().With(zap.String("command", "local"), zap.Int("year", opts.Year))

	counties, err := tiger.ReadCounties(cfg.Local.CountiesPath)
	if err != nil {
		return err
	}
	log.Info("counties loaded", zap.Int("count", len(counties)))

	stats, err := sprawl.RunLocal(ctx, opts, counties)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, stats); err != nil {
		return err
	}

	out, err := initSink(ctx, cfg.Local.Output)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	uri, err := out.Put(ctx, outputKey(cfg.Export.DescriptionPrefix, opts.Year, format), format.ContentType(), &buf)
	if err != nil {
		return err
	}

	if load {
		ss, err := statsStore(st)
		if err != nil {
			return err
		}
		n, err := ss.UpsertCountyStats(ctx, stats)
		if err != nil {
			return err
		}
		log.Info("county statistics upserted", zap.Int64("rows", n))
	}

	run.State = store.RunStateSucceeded
	run.Rows = len(stats)
	run.Destination = uri
	return st.UpdateRun(ctx, run)
}

// applyLocalFlags overrides local config with any flags that were set.
func applyLocalFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("counties") {
		cfg.Local.CountiesPath, _ = f.GetString("counties")
	}
	if f.Changed("raster-dir") {
		cfg.Local.RasterDir, _ = f.GetString("raster-dir")
	}
	if f.Changed("output") {
		cfg.Local.Output, _ = f.GetString("output")
	}
	if f.Changed("format") {
		cfg.Local.Format, _ = f.GetString("format")
	}
	if f.Changed("workers") {
		cfg.Pipeline.TileScale, _ = f.GetFloat64("workers")
	}
}

func init() {
	localCmd.Flags().Int("year", 0, "NLCD year (default: from config)")
	localCmd.Flags().String("counties", "", "TIGER county shapefile (.shp)")
	localCmd.Flags().String("raster-dir", "", "directory holding yearly land cover grids")
	localCmd.Flags().String("output", "", "comma-separated destination URIs")
	localCmd.Flags().String("format", "", "output format: CSV, XLSX or PARQUET")
	localCmd.Flags().Float64("workers", 0, "concurrent county reductions (tile scale)")
	localCmd.Flags().Bool("load", false, "also upsert the statistics into Postgres")
	rootCmd.AddCommand(localCmd)
}
