package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/db"
	"github.com/sells-group/sprawl-cli/internal/tiger"
)

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "Download TIGER/Line county boundaries",
	Long: `Downloads the national TIGER/Line county shapefile for a vintage year and
prints the extracted .shp path for use with "local --counties". With --load,
the boundaries are also staged in PostGIS (sprawl.counties).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.Tiger.Year
		}
		load, _ := cmd.Flags().GetBool("load")
		batch, _ := cmd.Flags().GetInt("batch-size")

		log := zap.L().With(zap.String("command", "counties"), zap.Int("year", year))

		shpPath, err := tiger.Download(ctx, tiger.CountyURL(year), cfg.Tiger.TempDir)
		if err != nil {
			return err
		}
		log.Info("county shapefile ready", zap.String("path", shpPath))

		if load {
			if err := cfg.Validate("load"); err != nil {
				return err
			}
			features, err := tiger.ReadCounties(shpPath)
			if err != nil {
				return err
			}

			pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := tiger.LoadCounties(ctx, pool, features, batch)
			if err != nil {
				return eris.Wrap(err, "counties: load")
			}
			log.Info("counties staged", zap.Int64("rows", n), zap.String("table", tiger.CountyTable))
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	countiesCmd.Flags().Int("year", 0, "TIGER/Line vintage (default: from config)")
	countiesCmd.Flags().Bool("load", false, "stage boundaries in PostGIS")
	countiesCmd.Flags().Int("batch-size", 1000, "COPY batch size for --load")
	rootCmd.AddCommand(countiesCmd)
}
