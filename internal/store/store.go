// Package store persists export run history and, on Postgres, the county
// statistics tables produced by runs.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sprawl-cli/internal/aqi"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

// Backend identifies where a run was computed.
type Backend string

// Run backends.
const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// RunState mirrors the Earth Engine task states; local runs use the same
// vocabulary.
type RunState string

// Run states.
const (
	RunStatePending   RunState = "PENDING"
	RunStateRunning   RunState = "RUNNING"
	RunStateSucceeded RunState = "SUCCEEDED"
	RunStateFailed    RunState = "FAILED"
	RunStateCancelled RunState = "CANCELLED"
)

// Terminal reports whether no further transitions are expected.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateSucceeded, RunStateFailed, RunStateCancelled:
		return true
	}
	return false
}

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Run is one export attempt.
type Run struct {
	ID          string    `json:"id"`
	Year        int       `json:"year"`
	Backend     Backend   `json:"backend"`
	Description string    `json:"description"`
	Operation   string    `json:"operation,omitempty"`   // remote operation name
	State       RunState  `json:"state"`
	Destination string    `json:"destination,omitempty"` // URI(s) of written files
	Rows        int       `json:"rows"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Year    int      `json:"year,omitempty"`
	Backend Backend  `json:"backend,omitempty"`
	State   RunState `json:"state,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset,omitempty"`
}

// Store defines run history persistence.
type Store interface {
	// CreateRun inserts run, assigning ID and timestamps when unset.
	CreateRun(ctx context.Context, run *Run) error
	// UpdateRun saves the mutable fields of run.
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// StatsStore is implemented by stores that also hold county statistics.
type StatsStore interface {
	UpsertCountyStats(ctx context.Context, rows []sprawl.CountyStat) (int64, error)
}

// AQIStore is implemented by stores that also hold county AQI statistics.
type AQIStore interface {
	UpsertCountyAQI(ctx context.Context, rows []aqi.CountyAQI) (int64, error)
}

// Open returns the store for a driver: "sqlite" or "postgres".
func Open(ctx context.Context, driver, url string) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return NewSQLite(url)
	case "postgres", "postgresql":
		return NewPostgres(ctx, url)
	}
	return nil, eris.Errorf("store: unknown driver %q", driver)
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
