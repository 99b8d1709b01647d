package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sprawl-cli/internal/config"
)

func TestWriteConfig(t *testing.T) {
	c := &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: "sprawl.db"},
		Pipeline: config.PipelineConfig{Year: 2021, Scale: 30, TileScale: 4, SimplifyM: 100},
		Export:   config.ExportConfig{Destination: "drive", Folder: "GEE_Exports"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))

	out := buf.String()
	assert.Contains(t, out, "pipeline:")
	assert.Contains(t, out, "  year: 2021")
	assert.Contains(t, out, "folder: GEE_Exports")

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 2021, back.Pipeline.Year)
	assert.Equal(t, 4.0, back.Pipeline.TileScale)
	assert.Equal(t, "sprawl.db", back.Store.DatabaseURL)
}
