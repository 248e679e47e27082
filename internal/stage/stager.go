// Package stage loads raw spreadsheet or query rows into per-job staging
// tables, adding the tracking columns the import core relies on.
package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/imerr"
	"github.com/sells-group/importctl/internal/importer"
)

// DefaultBatchSize is the COPY batch size used when a stager does not
// set one.
const DefaultBatchSize = 500

// Stager creates and fills one staging table from an input source.
type Stager interface {
	// Kind identifies the source variant ("csv", "xlsx", "sql").
	Kind() string

	// SubmittableFields lists the form fields this source accepts.
	SubmittableFields() []string

	// Values returns the submitted form values to store against the job.
	Values() map[string]string

	// Stage creates the staging table, loads all rows, and returns the
	// DataSource metadata describing the staged shape.
	Stage(ctx context.Context, pool db.Pool) (importer.SourceMeta, error)
}

// newTableName generates a staging table name under the reserved prefix.
// A variable so tests can pin the otherwise random name.
var newTableName = func() string {
	return importer.TablePrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// createTable creates a staging table with n text data columns plus the
// tracking columns.
func createTable(ctx context.Context, pool db.Pool, table string, numCols int) error {
	if err := importer.ValidateTableName(table); err != nil {
		return err
	}

	cols := make([]string, numCols)
	for i := range cols {
		cols[i] = importer.DataColumn(i) + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
	if _, err := pool.Exec(ctx, create); err != nil {
		return imerr.NewStore("stage: create staging table", err)
	}

	return addTrackingColumns(ctx, pool, table)
}

// addTrackingColumns adds the row-tracking columns. The leading underscore
// keeps them out of the data-column namespace.
func addTrackingColumns(ctx context.Context, pool db.Pool, table string) error {
	alter := fmt.Sprintf(`ALTER TABLE %s
	ADD COLUMN _entity_id BIGINT,
	ADD COLUMN _related_entity_ids JSONB,
	ADD COLUMN _status TEXT DEFAULT 'new' NOT NULL,
	ADD COLUMN _status_message TEXT,
	ADD COLUMN _id BIGSERIAL PRIMARY KEY`, table)
	if _, err := pool.Exec(ctx, alter); err != nil {
		return imerr.NewStore("stage: add tracking columns", err)
	}
	return nil
}

// batchLoader accumulates rows and flushes them with COPY.
type batchLoader struct {
	pool      db.Pool
	table     string
	columns   []string
	batchSize int

	batch [][]any
	total int64
}

func newBatchLoader(pool db.Pool, table string, numCols, batchSize int) *batchLoader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &batchLoader{
		pool:      pool,
		table:     table,
		columns:   importer.DataColumns(numCols),
		batchSize: batchSize,
	}
}

// add appends one raw row, padding or truncating to the staged width.
func (l *batchLoader) add(ctx context.Context, values []string) error {
	row := make([]any, len(l.columns))
	for i := range l.columns {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	l.batch = append(l.batch, row)

	if len(l.batch) >= l.batchSize {
		return l.flush(ctx)
	}
	return nil
}

func (l *batchLoader) flush(ctx context.Context) error {
	n, err := db.CopyFrom(ctx, l.pool, l.table, l.columns, l.batch)
	if err != nil {
		return imerr.NewStore("stage: load rows", err)
	}
	l.total += n
	l.batch = l.batch[:0]
	return nil
}

// generatedHeaders names columns when the source has no header row.
func generatedHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers
}

// Retain returns the purge equivalence check for a source kind: whether a
// re-submission with new form values can keep the existing staging table.
// SQL staging always drops, since the query result may have changed.
func Retain(kind string) importer.RetainFunc {
	switch kind {
	case "csv":
		return retainOn("file", "skip_header", "delimiter")
	case "xlsx":
		return retainOn("file", "sheet", "skip_header")
	default:
		return func(old, new map[string]string) bool { return false }
	}
}

// retainOn retains the table when every listed field matches between the
// old and new submissions.
func retainOn(fields ...string) importer.RetainFunc {
	return func(old, new map[string]string) bool {
		if len(new) == 0 {
			return false
		}
		for _, f := range fields {
			if old[f] != new[f] {
				return false
			}
		}
		return true
	}
}
