package stage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/importctl/internal/importer"
)

func writeWorkbook(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().Value = v
		}
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestXLSXStager_Stage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	const table = "import_tmp_xlsxtest"
	pinTableName(t, table)

	path := writeWorkbook(t, "Contacts", [][]string{
		{"First Name", "Last Name"},
		{"Ada", "Lovelace"},
		{"Grace", "Hopper"},
	})

	expectStagingTable(mock, table)
	mock.ExpectCopyFrom(pgx.Identifier{table}, []string{"col_1", "col_2"}).
		WillReturnResult(2)

	stager := &XLSXStager{Path: path, Sheet: "Contacts", SkipHeader: true}
	meta, err := stager.Stage(context.Background(), mock)
	require.NoError(t, err)

	assert.Equal(t, importer.SourceMeta{
		TableName:         table,
		NumberOfColumns:   2,
		ColumnHeaders:     []string{"First Name", "Last Name"},
		SubmittableFields: []string{"file", "sheet", "skip_header"},
	}, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestXLSXStager_FirstSheetByDefault(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	const table = "import_tmp_xlsxfirst"
	pinTableName(t, table)

	path := writeWorkbook(t, "Sheet1", [][]string{{"a", "b"}})

	expectStagingTable(mock, table)
	mock.ExpectCopyFrom(pgx.Identifier{table}, []string{"col_1", "col_2"}).
		WillReturnResult(1)

	stager := &XLSXStager{Path: path}
	meta, err := stager.Stage(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, []string{"Column 1", "Column 2"}, meta.ColumnHeaders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestXLSXStager_SheetNotFound(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]string{{"a"}})

	stager := &XLSXStager{Path: path, Sheet: "Missing"}
	_, err := stager.Stage(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Missing" not found`)
}

func TestXLSXStager_Values(t *testing.T) {
	t.Parallel()

	stager := &XLSXStager{Path: "/data/in.xlsx", Sheet: "Contacts", SkipHeader: true}
	assert.Equal(t, map[string]string{
		"source":      "xlsx",
		"file":        "/data/in.xlsx",
		"sheet":       "Contacts",
		"skip_header": "true",
	}, stager.Values())
}
