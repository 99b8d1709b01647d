package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyInto_EmptyRows(t *testing.T) {
	n, err := CopyInto(context.TODO(), nil, "sprawl.counties", []string{"a"}, nil, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInto_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"fips", "name"}
	mock.ExpectCopyFrom(pgx.Identifier{"sprawl", "counties"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"sprawl", "counties"}, cols).WillReturnResult(1)

	rows := [][]any{{"06037", "Los Angeles"}, {"06059", "Orange"}, {"37119", "Mecklenburg"}}
	n, err := CopyInto(context.Background(), mock, "sprawl.counties", cols, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_UnqualifiedTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"counties"}, []string{"a"}).WillReturnResult(1)

	n, err := CopyInto(context.Background(), mock, "counties", []string{"a"}, [][]any{{1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCopyInto_ErrorReturnsPartialCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sprawl", "counties"}, []string{"a"}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"sprawl", "counties"}, []string{"a"}).WillReturnError(errors.New("copy failed"))

	n, err := CopyInto(context.Background(), mock, "sprawl.counties", []string{"a"}, [][]any{{1}, {2}}, 1)
	require.Error(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, err.Error(), "COPY INTO sprawl.counties (rows 1-2)")
}

func TestTruncate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`TRUNCATE "sprawl"."counties"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	require.NoError(t, Truncate(context.Background(), mock, "sprawl.counties"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
