package stage

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/importer"
)

// CSVStager stages a CSV file. When SkipHeader is set the first row
// becomes the column headers instead of data.
type CSVStager struct {
	Path       string
	SkipHeader bool
	Delimiter  rune // default ','
	BatchSize  int
}

func (s *CSVStager) Kind() string { return "csv" }

func (s *CSVStager) SubmittableFields() []string {
	return []string{"file", "skip_header", "delimiter"}
}

func (s *CSVStager) Values() map[string]string {
	delim := ","
	if s.Delimiter != 0 {
		delim = string(s.Delimiter)
	}
	return map[string]string{
		"source":      s.Kind(),
		"file":        s.Path,
		"skip_header": strconv.FormatBool(s.SkipHeader),
		"delimiter":   delim,
	}
}

// Stage streams the file into a fresh staging table. The column count is
// fixed by the first row; shorter rows are padded, longer ones truncated.
func (s *CSVStager) Stage(ctx context.Context, pool db.Pool) (importer.SourceMeta, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return importer.SourceMeta{}, eris.Wrap(err, "stage: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if s.Delimiter != 0 {
		reader.Comma = s.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	first, err := reader.Read()
	if err == io.EOF {
		return importer.SourceMeta{}, eris.New("stage: csv file is empty")
	}
	if err != nil {
		return importer.SourceMeta{}, eris.Wrap(err, "stage: read csv")
	}

	numCols := len(first)
	headers := generatedHeaders(numCols)

	table := newTableName()
	if err := createTable(ctx, pool, table, numCols); err != nil {
		return importer.SourceMeta{}, err
	}

	loader := newBatchLoader(pool, table, numCols, s.BatchSize)
	if s.SkipHeader {
		headers = first
	} else if err := loader.add(ctx, first); err != nil {
		return importer.SourceMeta{}, err
	}

	for {
		if ctx.Err() != nil {
			return importer.SourceMeta{}, eris.Wrap(ctx.Err(), "stage: csv cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return importer.SourceMeta{}, eris.Wrap(err, "stage: read csv")
		}
		if err := loader.add(ctx, record); err != nil {
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
