package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &Run{Year: 2021, Backend: BackendRemote, Description: "urban_sprawl_2021"}
	require.NoError(t, st.CreateRun(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatePending, run.State)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, BackendRemote, got.Backend)
	assert.Equal(t, "urban_sprawl_2021", got.Description)
	assert.Equal(t, RunStatePending, got.State)
}

func TestSQLite_UpdateRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &Run{Year: 2019, Backend: BackendLocal, Description: "urban_sprawl_2019"}
	require.NoError(t, st.CreateRun(ctx, run))

	run.State = RunStateSucceeded
	run.Rows = 3143
	run.Destination = "file:///tmp/urban_sprawl_2019.csv"
	require.NoError(t, st.UpdateRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStateSucceeded, got.State)
	assert.Equal(t, 3143, got.Rows)
	assert.Equal(t, "file:///tmp/urban_sprawl_2019.csv", got.Destination)
}

func TestSQLite_UpdateRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateRun(context.Background(), &Run{ID: "missing", State: RunStateFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range []*Run{
		{Year: 2019, Backend: BackendRemote, Description: "a", State: RunStateRunning},
		{Year: 2021, Backend: BackendRemote, Description: "b", State: RunStateSucceeded},
		{Year: 2021, Backend: BackendLocal, Description: "c", State: RunStateSucceeded},
	} {
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.CreateRun(ctx, r))
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Description)

	byYear, err := st.ListRuns(ctx, RunFilter{Year: 2021})
	require.NoError(t, err)
	assert.Len(t, byYear, 2)

	local, err := st.ListRuns(ctx, RunFilter{Backend: BackendLocal})
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "c", local[0].Description)

	running, err := st.ListRuns(ctx, RunFilter{State: RunStateRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, 2019, running[0].Year)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Description)
}

func TestRunState_Terminal(t *testing.T) {
	assert.False(t, RunStatePending.Terminal())
	assert.False(t, RunStateRunning.Terminal())
	assert.True(t, RunStateSucceeded.Terminal())
	assert.True(t, RunStateFailed.Terminal())
	assert.True(t, RunStateCancelled.Terminal())
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "mysql", "")
	assert.ErrorContains(t, err, "unknown driver")
}
