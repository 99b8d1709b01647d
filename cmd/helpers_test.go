package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sprawl-cli/internal/config"
	"github.com/sells-group/sprawl-cli/internal/export"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
	"github.com/sells-group/sprawl-cli/internal/store"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func yearCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("year", 0, "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestGraphOptions(t *testing.T) {
	withConfig(t, &config.Config{Pipeline: config.PipelineConfig{
		Year:         2021,
		Scale:        30,
		TileScale:    4,
		SimplifyM:    100,
		CountyTable:  "TIGER/2018/Counties",
		LandcoverIDs: map[string]string{"2023": "projects/demo/assets/nlcd_2023"},
	}})

	opts, err := graphOptions(yearCommand(t))
	require.NoError(t, err)
	assert.Equal(t, 2021, opts.Year)
	assert.Equal(t, 30.0, opts.Scale)
	assert.Equal(t, 4.0, opts.TileScale)
	assert.Equal(t, 100.0, opts.SimplifyM)
	assert.Equal(t, "projects/demo/assets/nlcd_2023", opts.Catalog.LandcoverID(2023))

	opts, err = graphOptions(yearCommand(t, "--year", "2019"))
	require.NoError(t, err)
	assert.Equal(t, 2019, opts.Year)
}

func TestGraphOptions_BadOverride(t *testing.T) {
	withConfig(t, &config.Config{Pipeline: config.PipelineConfig{
		LandcoverIDs: map[string]string{"latest": "x"},
	}})
	_, err := graphOptions(yearCommand(t))
	assert.Error(t, err)
}

func TestOutputKey(t *testing.T) {
	assert.Equal(t, "urban_sprawl_2021.csv", outputKey("urban_sprawl_", 2021, export.FormatCSV))
	assert.Equal(t, "urban_sprawl_2019.parquet", outputKey("urban_sprawl_", 2019, export.FormatParquet))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"file://out", "gs://b/p"}, splitAndTrim(" file://out , gs://b/p ,"))
	assert.Nil(t, splitAndTrim(""))
}

func TestStatsStore_RequiresPostgres(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite"}})

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = statsStore(st)
	assert.ErrorContains(t, err, "use postgres")
}

func TestRecordFailure_CancelledContext(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, st.Migrate(ctx))
	run := &store.Run{Year: 2021, Backend: store.BackendRemote, State: store.RunStatePending}
	require.NoError(t, st.CreateRun(ctx, run))

	cancel()
	recordFailure(ctx, st, run, errors.New("interrupted"))

	got, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStateFailed, got.State)
	assert.Equal(t, "interrupted", got.Error)
}

func TestNormalizeRows(t *testing.T) {
	rows := normalizeRows([]sprawl.CountyStat{
		{StateFP: "6", CountyFP: "37", FIPS: "6037"},
		{StateFP: "48", CountyFP: "201", FIPS: "48201"},
	})
	assert.Equal(t, "06", rows[0].StateFP)
	assert.Equal(t, "037", rows[0].CountyFP)
	assert.Equal(t, "06037", rows[0].FIPS)
	assert.Equal(t, "48201", rows[1].FIPS)
}

func TestFormatPreview(t *testing.T) {
	var buf bytes.Buffer
	err := formatPreview(&buf, &sprawl.Preview{
		CountyCount: 3233,
		Example:     json.RawMessage(`{"fips":"06037"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Total counties: 3233")
	assert.Contains(t, buf.String(), `"fips": "06037"`)

	buf.Reset()
	require.NoError(t, formatPreview(&buf, &sprawl.Preview{Example: json.RawMessage(`not-json`)}))
	assert.Contains(t, buf.String(), "not-json")
}
