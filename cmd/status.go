package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sprawl-cli/internal/store"
	ee "github.com/sells-group/sprawl-cli/pkg/earthengine"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id|operation>",
	Short: "Show the state of an export task",
	Long: `Looks up an Earth Engine operation once and prints its state. The argument is
either a run id recorded by "export" or an operation name. Recorded runs are
updated with the latest state and destination URIs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opName := args[0]
		run, err := st.GetRun(ctx, args[0])
		switch {
		case err == nil:
			if run.Operation == "" {
				return eris.Errorf("status: run %s has no remote operation", run.ID)
			}
			opName = run.Operation
		case errors.Is(err, store.ErrNotFound):
			run = nil
		default:
			return err
		}

		client, err := initEarthEngine(ctx)
		if err != nil {
			return err
		}
		op, err := client.GetOperation(ctx, opName)
		if err != nil {
			return err
		}

		if run != nil && applyOperation(run, op) {
			if err := st.UpdateRun(ctx, run); err != nil {
				return eris.Wrap(err, "status: update run")
			}
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(op)
		}
		formatOperation(os.Stdout, op)
		return nil
	},
}

// applyOperation copies the operation's state onto run and reports whether
// anything changed.
func applyOperation(run *store.Run, op *ee.Operation) bool {
	changed := false
	if s := store.RunState(op.State()); s != "" && s != run.State {
		run.State = s
		changed = true
	}
	if op.Metadata != nil && len(op.Metadata.DestinationURIs) > 0 {
		dest := strings.Join(op.Metadata.DestinationURIs, ",")
		if dest != run.Destination {
			run.Destination = dest
			changed = true
		}
	}
	if op.Error != nil && op.Error.Message != run.Error {
		run.Error = op.Error.Message
		if run.State == "" || !run.State.Terminal() {
			run.State = store.RunStateFailed
		}
		changed = true
	}
	return changed
}

// formatOperation writes a compact operation summary to w.
func formatOperation(out io.Writer, op *ee.Operation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Operation:\t%s\n", op.Name)
	state := op.State()
	if state == "" {
		state = "UNKNOWN"
	}
	_, _ = fmt.Fprintf(w, "State:\t%s\n", state)
	_, _ = fmt.Fprintf(w, "Done:\t%t\n", op.Done)
	if md := op.Metadata; md != nil {
		if md.Description != "" {
			_, _ = fmt.Fprintf(w, "Description:\t%s\n", md.Description)
		}
		if md.Progress > 0 {
			_, _ = fmt.Fprintf(w, "Progress:\t%.0f%%\n", md.Progress*100)
		}
		for _, uri := range md.DestinationURIs {
			_, _ = fmt.Fprintf(w, "Destination:\t%s\n", uri)
		}
	}
	if op.Error != nil {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", op.Error.Message)
	}
	_ = w.Flush()
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the raw operation as JSON")
	rootCmd.AddCommand(statusCmd)
}
