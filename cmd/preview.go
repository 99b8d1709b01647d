package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the county count and an example output record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		opts, err := graphOptions(cmd)
		if err != nil {
			return err
		}
		client, err := initEarthEngine(ctx)
		if err != nil {
			return err
		}

		p, err := sprawl.RunPreview(ctx, client, opts)
		if err != nil {
			return err
		}
		return formatPreview(os.Stdout, p)
	},
}

// formatPreview prints the preview the way the notebook workflow does:
// total count, then the example county.
func formatPreview(w io.Writer, p *sprawl.Preview) error {
	if _, err := fmt.Fprintf(w, "Total counties: %d\n", p.CountyCount); err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, p.Example, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(p.Example)
	}
	_, err := fmt.Fprintf(w, "Example county:\n%s\n", pretty.String())
	return err
}

func init() {
	previewCmd.Flags().Int("year", 0, "NLCD year (default: from config)")
	rootCmd.AddCommand(previewCmd)
}
