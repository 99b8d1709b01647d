package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pullCmd = &cobra.Command{
	Use:   "pull <source-uri> <key>",
	Short: "Copy an exported table from a bucket or directory",
	Long: `Downloads an exported table, for example the CSV an Earth Engine export
wrote to gs://bucket/prefix, and writes it to --out or stdout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, err := initSink(ctx, args[0])
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		rc, err := src.Get(ctx, args[1])
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		outPath, _ := cmd.Flags().GetString("out")
		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath) // #nosec G304 -- user-supplied output path
			if err != nil {
				return eris.Wrap(err, "pull: create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		n, err := io.Copy(w, rc)
		if err != nil {
			return eris.Wrap(err, "pull: copy")
		}
		zap.L().Info("table pulled",
			zap.String("command", "pull"),
			zap.String("source", args[0]),
			zap.String("key", args[1]),
			zap.Int64("bytes", n),
		)
		if outPath != "" {
			fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", n, outPath)
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().String("out", "", "output file (default: stdout)")
	rootCmd.AddCommand(pullCmd)
}
