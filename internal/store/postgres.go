package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sprawl-cli/internal/aqi"
	"github.com/sells-group/sprawl-cli/internal/db"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

// CountyStatsTable holds upserted county statistics keyed by (fips, year).
const CountyStatsTable = "sprawl.county_stats"

// countyStatsColumns are the database columns matching sprawl.Columns.
var countyStatsColumns = []string{
	"statefp", "countyfp", "fips", "year", "name",
	"developed_area_m2", "total_area_m2", "developed_fraction",
}

// CountyAQITable holds yearly county AQI statistics keyed by (fips, year).
const CountyAQITable = "sprawl.county_aqi"

// countyAQIColumns match aqi.CountyAQI.Values.
var countyAQIColumns = []string{
	"fips", "year", "statefp", "countyfp", "state_name", "county_name",
	"avg_aqi", "max_aqi", "min_aqi", "days_count",
}

// PostgresStore implements Store and StatsStore on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to Postgres.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying pool for bulk loaders.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS sprawl;

CREATE TABLE IF NOT EXISTS sprawl.export_runs (
	id          TEXT PRIMARY KEY,
	year        INTEGER NOT NULL,
	backend     TEXT NOT NULL,
	description TEXT NOT NULL,
	operation   TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL,
	destination TEXT NOT NULL DEFAULT '',
	rows        INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_export_runs_year ON sprawl.export_runs(year);
CREATE INDEX IF NOT EXISTS idx_export_runs_state ON sprawl.export_runs(state);

CREATE TABLE IF NOT EXISTS sprawl.county_stats (
	statefp            TEXT NOT NULL,
	countyfp           TEXT NOT NULL,
	fips               TEXT NOT NULL,
	year               INTEGER NOT NULL,
	name               TEXT,
	developed_area_m2  DOUBLE PRECISION NOT NULL,
	total_area_m2      DOUBLE PRECISION NOT NULL,
	developed_fraction DOUBLE PRECISION NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (fips, year)
);

CREATE TABLE IF NOT EXISTS sprawl.county_aqi (
	fips        TEXT NOT NULL,
	year        INTEGER NOT NULL,
	statefp     TEXT NOT NULL,
	countyfp    TEXT NOT NULL,
	state_name  TEXT,
	county_name TEXT,
	avg_aqi     DOUBLE PRECISION NOT NULL,
	max_aqi     DOUBLE PRECISION NOT NULL,
	min_aqi     DOUBLE PRECISION NOT NULL,
	days_count  INTEGER NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (fips, year)
);
`

// Migrate creates the run history and county statistics tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	prepareRun(run)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sprawl.export_runs (id, year, backend, description, operation, state, destination, rows, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Year, string(run.Backend), run.Description, run.Operation, string(run.State),
		run.Destination, run.Rows, run.Error, run.CreatedAt, run.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE sprawl.export_runs SET operation = $1, state = $2, destination = $3, rows = $4, error = $5, updated_at = $6 WHERE id = $7`,
		run.Operation, string(run.State), run.Destination, run.Rows, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update run %s", run.ID)
	}
	return nil
}

const postgresRunColumns = `id, year, backend, description, operation, state, destination, rows, error, created_at, updated_at`

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresRunColumns+` FROM sprawl.export_runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM sprawl.export_runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Year != 0 {
		query += ` AND year = ` + arg(filter.Year)
	}
	if filter.Backend != "" {
		query += ` AND backend = ` + arg(string(filter.Backend))
	}
	if filter.State != "" {
		query += ` AND state = ` + arg(string(filter.State))
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(defaultLimit(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// UpsertCountyStats merges rows into sprawl.county_stats; reruns of a year
// overwrite the previous values.
func (s *PostgresStore) UpsertCountyStats(ctx context.Context, stats []sprawl.CountyStat) (int64, error) {
	rows := make([][]any, len(stats))
	for i, st := range stats {
		rows[i] = st.Values()
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        CountyStatsTable,
		Columns:      countyStatsColumns,
		ConflictKeys: []string{"fips", "year"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert county stats")
	}
	return n, nil
}

// UpsertCountyAQI merges yearly AQI rows into sprawl.county_aqi.
func (s *PostgresStore) UpsertCountyAQI(ctx context.Context, stats []aqi.CountyAQI) (int64, error) {
	rows := make([][]any, len(stats))
	for i, st := range stats {
		rows[i] = st.Values()
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        CountyAQITable,
		Columns:      countyAQIColumns,
		ConflictKeys: []string{"fips", "year"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert county aqi")
	}
	return n, nil
}
