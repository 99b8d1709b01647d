package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBatchSize = 50000

// CopyInto bulk-loads rows into a possibly schema-qualified table with the
// COPY protocol, in batches of batchSize rows (0 = 50,000). It returns the
// number of rows written before any error.
func CopyInto(ctx context.Context, pool Pool, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	ident := identifier(table)
	log := zap.L().With(
		zap.String("component", "db.copy"),
		zap.String("table", table),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, err := pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows[start:end]))
		if err != nil {
			return total, eris.Wrapf(err, "db: COPY INTO %s (rows %d-%d)", table, start, end)
		}
		total += n
		log.Debug("batch copied", zap.Int("start", start), zap.Int("end", end), zap.Int64("rows", n))
	}
	return total, nil
}

// Truncate empties a table.
func Truncate(ctx context.Context, pool Pool, table string) error {
	if _, err := pool.Exec(ctx, "TRUNCATE "+sanitizeTable(table)); err != nil {
		return eris.Wrapf(err, "db: truncate %s", table)
	}
	return nil
}

func identifier(table string) pgx.Identifier {
	schema, name, ok := splitTable(table)
	if ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}
