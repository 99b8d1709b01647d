package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/sprawl-cli/internal/store"
	ee "github.com/sells-group/sprawl-cli/pkg/earthengine"
)

func TestApplyOperation(t *testing.T) {
	run := &store.Run{State: store.RunStatePending}
	op := &ee.Operation{
		Name: "projects/demo/operations/OP1",
		Done: true,
		Metadata: &ee.OperationMetadata{
			State:           "SUCCEEDED",
			DestinationURIs: []string{"https://drive.google.com/a", "https://drive.google.com/b"},
		},
	}

	assert.True(t, applyOperation(run, op))
	assert.Equal(t, store.RunStateSucceeded, run.State)
	assert.Equal(t, "https://drive.google.com/a,https://drive.google.com/b", run.Destination)

	assert.False(t, applyOperation(run, op), "second application is a no-op")
}

func TestApplyOperation_Error(t *testing.T) {
	run := &store.Run{State: store.RunStateRunning}
	op := &ee.Operation{
		Done:  true,
		Error: &ee.Status{Code: 3, Message: "Collection query aborted after accumulating over 5000 elements."},
	}

	assert.True(t, applyOperation(run, op))
	assert.Equal(t, store.RunStateFailed, run.State)
	assert.Contains(t, run.Error, "5000 elements")
}

func TestApplyOperation_NoMetadata(t *testing.T) {
	run := &store.Run{State: store.RunStatePending}
	assert.False(t, applyOperation(run, &ee.Operation{Name: "OP1"}))
	assert.Equal(t, store.RunStatePending, run.State)
}

func TestFormatOperation(t *testing.T) {
	var buf bytes.Buffer
	formatOperation(&buf, &ee.Operation{
		Name: "projects/demo/operations/OP1",
		Metadata: &ee.OperationMetadata{
			State:       "RUNNING",
			Description: "urban_sprawl_2021",
			Progress:    0.42,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "projects/demo/operations/OP1")
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "urban_sprawl_2021")
	assert.Contains(t, out, "42%")

	buf.Reset()
	formatOperation(&buf, &ee.Operation{Name: "OP2", Error: &ee.Status{Message: "denied"}})
	assert.Contains(t, buf.String(), "UNKNOWN")
	assert.Contains(t, buf.String(), "denied")
}
