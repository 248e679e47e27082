package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	columns := []string{"col_1", "col_2"}
	rows := [][]any{
		{"Ada", "Lovelace"},
		{"Grace", "Hopper"},
	}

	mock.ExpectCopyFrom(pgx.Identifier{"import_tmp_abc"}, columns).
		WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "import_tmp_abc", columns, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_EmptyRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := CopyFrom(context.Background(), mock, "import_tmp_abc", []string{"col_1"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	columns := []string{"col_1"}
	mock.ExpectCopyFrom(pgx.Identifier{"import_tmp_abc"}, columns).
		WillReturnError(fmt.Errorf("table does not exist"))

	_, err = CopyFrom(context.Background(), mock, "import_tmp_abc", columns, [][]any{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO import_tmp_abc")
	assert.NoError(t, mock.ExpectationsWereMet())
}
