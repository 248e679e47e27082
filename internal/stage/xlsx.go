package stage

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/importer"
)

// XLSXStager stages one sheet of an XLSX workbook.
type XLSXStager struct {
	Path       string
	Sheet      string // empty selects the first sheet
	SkipHeader bool
	BatchSize  int
}

func (s *XLSXStager) Kind() string { return "xlsx" }

func (s *XLSXStager) SubmittableFields() []string {
	return []string{"file", "sheet", "skip_header"}
}

func (s *XLSXStager) Values() map[string]string {
	return map[string]string{
		"source":      s.Kind(),
		"file":        s.Path,
		"sheet":       s.Sheet,
		"skip_header": strconv.FormatBool(s.SkipHeader),
	}
}

// Stage loads the selected sheet into a fresh staging table. The column
// count is fixed by the first row.
func (s *XLSXStager) Stage(ctx context.Context, pool db.Pool) (importer.SourceMeta, error) {
	f, err := xlsx.OpenFile(s.Path)
	if err != nil {
		return importer.SourceMeta{}, eris.Wrap(err, "stage: open xlsx")
	}

	sheet, err := s.selectSheet(f)
	if err != nil {
		return importer.SourceMeta{}, err
	}
	if len(sheet.Rows) == 0 {
		return importer.SourceMeta{}, eris.Errorf("stage: sheet %q is empty", sheet.Name)
	}

	first := rowToStrings(sheet.Rows[0])
	numCols := len(first)
	headers := generatedHeaders(numCols)
	if s.SkipHeader {
		headers = first
	}

	table := newTableName()
	if err := createTable(ctx, pool, table, numCols); err != nil {
		return importer.SourceMeta{}, err
	}

	loader := newBatchLoader(pool, table, numCols, s.BatchSize)
	for i, row := range sheet.Rows {
		if i == 0 && s.SkipHeader {
			continue
		}
		if ctx.Err() != nil {
			return importer.SourceMeta{}, eris.Wrap(ctx.Err(), "stage: xlsx cancelled")
		}
		if err := loader.add(ctx, rowToStrings(row)); err != nil {
			return importer.SourceMeta{}, err
		}
	}
	if err := loader.flush(ctx); err != nil {
		return importer.SourceMeta{}, err
	}

	return importer.SourceMeta{
		TableName:         table,
		NumberOfColumns:   numCols,
		ColumnHeaders:     headers,
		SubmittableFields: s.SubmittableFields(),
	}, nil
}

func (s *XLSXStager) selectSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if s.Sheet != "" {
		sheet, ok := f.Sheet[s.Sheet]
		if !ok {
			return nil, eris.Errorf("stage: sheet %q not found", s.Sheet)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("stage: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
