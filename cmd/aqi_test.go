package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sprawl-cli/internal/aqi"
	"github.com/sells-group/sprawl-cli/internal/config"
	"github.com/sells-group/sprawl-cli/internal/store"
)

func TestFormatAQISummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatAQISummary(&buf, []aqi.YearSummary{
		{Year: 2018, Counties: 1000, AvgAQI: 38.457, MaxAQI: 500, MinAQI: 0, Days: 300000},
		{Year: 2019, Counties: 990, AvgAQI: 36.1, MaxAQI: 410, MinAQI: 1, Days: 290000},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "AVG AQI")
	assert.Equal(t, []string{"2018", "1000", "38.46", "500", "0", "300000"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"2019", "990", "36.10", "410", "1", "290000"}, strings.Fields(lines[3]))
}

func TestApplyAQIFlags(t *testing.T) {
	withConfig(t, &config.Config{AQI: config.AQIConfig{FromYear: 2018, ToYear: 2023}})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("from", 0, "")
	cmd.Flags().Int("to", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--to", "2020"}))

	applyAQIFlags(cmd)
	assert.Equal(t, 2018, cfg.AQI.FromYear)
	assert.Equal(t, 2020, cfg.AQI.ToYear)
}

func TestAQIStore_RequiresPostgres(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite"}})

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = aqiStore(st)
	assert.ErrorContains(t, err, "use postgres")
}

func TestFailedYears(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, []int{2018, 2021}, failedYears(map[int]error{2021: boom, 2018: boom}))
	assert.Empty(t, failedYears(nil))
}

func TestAQICommand_Flags(t *testing.T) {
	for _, name := range []string{"from", "to", "output", "workers", "load"} {
		assert.NotNil(t, aqiCmd.Flags().Lookup(name), "flag %q", name)
	}
}
