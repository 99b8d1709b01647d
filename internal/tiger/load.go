package tiger

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/db"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
	"github.com/sells-group/sprawl-cli/internal/zonal"
)

// CountyTable holds loaded boundaries.
const CountyTable = "sprawl.counties"

// CountyColumns are the COPY columns of CountyTable.
var CountyColumns = []string{"statefp", "countyfp", "fips", "name", "geom"}

const countySchemaSQL = `CREATE SCHEMA IF NOT EXISTS sprawl;
CREATE TABLE IF NOT EXISTS sprawl.counties (
	statefp  TEXT NOT NULL,
	countyfp TEXT NOT NULL,
	fips     TEXT PRIMARY KEY,
	name     TEXT,
	geom     geometry(MultiPolygon, 4269)
);
CREATE INDEX IF NOT EXISTS idx_counties_geom ON sprawl.counties USING GIST (geom);`

// EnsureCountySchema creates the county boundary table.
func EnsureCountySchema(ctx context.Context, pool db.Pool) error {
	if _, err := pool.Exec(ctx, countySchemaSQL); err != nil {
		return eris.Wrap(err, "tiger: create county schema")
	}
	return nil
}

// CountyRows converts features into COPY rows with padded identifiers and
// EWKB geometry.
func CountyRows(features []zonal.Feature) ([][]any, error) {
	rows := make([][]any, 0, len(features))
	for _, f := range features {
		st, co, fips := sprawl.NormalizeFIPS(f.Properties[AttrStateFP], f.Properties[AttrCountyFP])
		wkb, err := EncodeWKB(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "tiger: county %s", fips)
		}
		rows = append(rows, []any{st, co, fips, f.Properties[AttrName], wkb})
	}
	return rows, nil
}

// LoadCounties replaces the contents of CountyTable with features.
func LoadCounties(ctx context.Context, pool db.Pool, features []zonal.Feature, batchSize int) (int64, error) {
	rows, err := CountyRows(features)
	if err != nil {
		return 0, err
	}
	if err := EnsureCountySchema(ctx, pool); err != nil {
		return 0, err
	}
	if err := db.Truncate(ctx, pool, CountyTable); err != nil {
		return 0, err
	}

	n, err := db.CopyInto(ctx, pool, CountyTable, CountyColumns, rows, batchSize)
	if err != nil {
		return n, eris.Wrap(err, "tiger: load counties")
	}

	zap.L().Info("tiger: counties loaded",
		zap.String("component", "tiger.load"),
		zap.Int64("rows", n),
	)
	return n, nil
}
