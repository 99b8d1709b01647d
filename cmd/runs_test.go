package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/sprawl-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Year:        2021,
			Backend:     store.BackendLocal,
			State:       store.RunStateSucceeded,
			Rows:        3233,
			Destination: "file:///data/exports/urban_sprawl_2021.csv",
			CreatedAt:   now,
			UpdatedAt:   now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Year:      2019,
			Backend:   store.BackendRemote,
			State:     store.RunStatePending,
			Operation: "projects/demo/operations/OP1",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "BACKEND")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "2021")
	assert.Contains(t, output, "local")
	assert.Contains(t, output, "SUCCEEDED")
	assert.Contains(t, output, "3233")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "projects/demo/operations/OP1")
	assert.NotContains(t, output, "def12345-6789")
}

func TestFormatRunsList_LongDestination(t *testing.T) {
	runs := []store.Run{{
		ID:          "x",
		Destination: "s3://a-very-long-bucket-name/with/a/deeply/nested/prefix/urban_sprawl_2021.parquet",
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "urban_sprawl_2021.parquet")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
