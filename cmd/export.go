package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/sprawl"
	"github.com/sells-group/sprawl-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Submit the county statistics export job to Earth Engine",
	Long: `Builds the five-stage computation graph for one year and submits it as an
Earth Engine table export to Google Drive or Cloud Storage. The command
returns once the task is accepted; use "status" to follow it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyExportFlags(cmd)
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		opts, err := graphOptions(cmd)
		if err != nil {
			return err
		}
		dest := sprawl.Destination{
			Kind:        cfg.Export.Destination,
			Folder:      cfg.Export.Folder,
			Bucket:      cfg.Export.Bucket,
			FileFormat:  cfg.Export.FileFormat,
			Description: sprawl.ExportDescription(cfg.Export.DescriptionPrefix, opts.Year),
		}

		log := zap.L().With(zap.String("command", "export"), zap.Int("year", opts.Year))

		client, err := initEarthEngine(ctx)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run := &store.Run{
			Year:        opts.Year,
			Backend:     store.BackendRemote,
			Description: dest.Description,
			State:       store.RunStatePending,
		}
		if err := st.CreateRun(ctx, run); err != nil {
			return eris.Wrap(err, "export: record run")
		}

		op, err := sprawl.SubmitExport(ctx, client, opts, dest)
		if err != nil {
			recordFailure(ctx, st, run, err)
			return err
		}

		run.Operation = op.Name
		if s := op.State(); s != "" {
			run.State = store.RunState(s)
		}
		if err := st.UpdateRun(ctx, run); err != nil {
			return eris.Wrap(err, "export: record operation")
		}

		log.Info("export submitted",
			zap.String("run_id", run.ID),
			zap.String("operation", op.Name),
			zap.String("destination", dest.Kind),
		)
		fmt.Printf("Submitted %s (run %s, operation %s)\n", dest.Description, truncateID(run.ID), op.ID())
		return nil
	},
}

// applyExportFlags overrides export config with any flags that were set.
func applyExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("destination") {
		cfg.Export.Destination, _ = f.GetString("destination")
	}
	if f.Changed("folder") {
		cfg.Export.Folder, _ = f.GetString("folder")
	}
	if f.Changed("bucket") {
		cfg.Export.Bucket, _ = f.GetString("bucket")
	}
	if f.Changed("file-format") {
		cfg.Export.FileFormat, _ = f.GetString("file-format")
	}
}

func init() {
	exportCmd.Flags().Int("year", 0, "NLCD year (default: from config)")
	exportCmd.Flags().String("destination", "", "export destination: drive or gcs")
	exportCmd.Flags().String("folder", "", "Drive folder or Cloud Storage prefix")
	exportCmd.Flags().String("bucket", "", "Cloud Storage bucket (gcs destination)")
	exportCmd.Flags().String("file-format", "", "export file format (CSV, GEO_JSON, KML, SHP)")
	rootCmd.AddCommand(exportCmd)
}
