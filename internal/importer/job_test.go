package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/importctl/internal/imerr"
)

func TestJobRegistry_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO import_user_jobs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	meta := Metadata{
		SubmittedValues: map[string]string{"source": "csv"},
		DataSource:      SourceMeta{TableName: testTable, NumberOfColumns: 2},
	}
	job, err := NewJobRegistry(mock).Create(context.Background(), meta)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, meta, job.Metadata)
	assert.Equal(t, now, job.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRegistry_GetRoundTripsMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	meta := Metadata{
		SubmittedValues: map[string]string{"source": "xlsx", "sheet": "Contacts"},
		DataSource: SourceMeta{
			TableName:         testTable,
			NumberOfColumns:   3,
			ColumnHeaders:     []string{"a", "b", "c"},
			SubmittableFields: []string{"file", "sheet", "skip_header"},
		},
	}
	metaJSON, err := json.Marshal(meta)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery("SELECT metadata, created_at, updated_at FROM import_user_jobs").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"metadata", "created_at", "updated_at"}).
			AddRow(metaJSON, now, now))

	job, err := NewJobRegistry(mock).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, meta, job.Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRegistry_GetStoreError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT metadata, created_at, updated_at FROM import_user_jobs").
		WithArgs(id).
		WillReturnError(fmt.Errorf("no rows"))

	_, err = NewJobRegistry(mock).Get(context.Background(), id)
	require.Error(t, err)
	assert.True(t, imerr.IsStore(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRegistry_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, metadata, created_at, updated_at FROM import_user_jobs").
		WillReturnRows(pgxmock.NewRows([]string{"id", "metadata", "created_at", "updated_at"}).
			AddRow(uuid.New(), []byte(`{"submitted_values":{"source":"csv"}}`), now, now).
			AddRow(uuid.New(), []byte(`{}`), now, now))

	jobs, err := NewJobRegistry(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "csv", jobs[0].Metadata.SubmittedValues["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRegistry_UpdateSourceMeta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	existing := Metadata{
		SubmittedValues: map[string]string{"source": "csv", "file": "contacts.csv"},
		DataSource:      SourceMeta{TableName: testTable, NumberOfColumns: 2},
	}
	existingJSON, err := json.Marshal(existing)
	require.NoError(t, err)

	// Purge cleared the table: submitted values survive, datasource resets.
	updated := existing
	updated.DataSource = SourceMeta{}
	updatedJSON, err := json.Marshal(updated)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery("SELECT metadata, created_at, updated_at FROM import_user_jobs").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"metadata", "created_at", "updated_at"}).
			AddRow(existingJSON, now, now))
	mock.ExpectExec("UPDATE import_user_jobs SET metadata").
		WithArgs(updatedJSON, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewJobRegistry(mock).UpdateSourceMeta(context.Background(), id, SourceMeta{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadata_EmptySourceMetaOmitted(t *testing.T) {
	t.Parallel()

	// A purged job stores no datasource subtree at all.
	out, err := json.Marshal(Metadata{SubmittedValues: map[string]string{"source": "csv"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"submitted_values":{"source":"csv"}}`, string(out))

	out, err = json.Marshal(Metadata{DataSource: SourceMeta{TableName: testTable}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"DataSource"`)
}

func TestJobRegistry_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("DELETE FROM import_user_jobs").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, NewJobRegistry(mock).Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRegistry_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS import_user_jobs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewJobRegistry(mock).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
