package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/imerr"
)

// TablePrefix is the reserved prefix for staging tables. The name guard
// refuses destructive statements against anything outside it.
const TablePrefix = "import_tmp_"

// RetainFunc decides whether an existing staging table is still usable
// when the datasource is re-submitted with new form values. Source kinds
// define their own equivalence (e.g. same file and skip-header flag).
type RetainFunc func(old, new map[string]string) bool

// DataSource owns one job's staging table: status-filtered iteration,
// row counts, status writes, and lifecycle.
type DataSource struct {
	pool db.Pool
	job  *Job

	limit    int
	offset   int
	statuses []StatusFilter

	cur       pgx.Rows
	exhausted bool
	purged    bool

	retain RetainFunc
}

// Option configures a DataSource.
type Option func(*DataSource)

// WithRetain sets the equivalence check consulted by Purge.
func WithRetain(fn RetainFunc) Option {
	return func(d *DataSource) { d.retain = fn }
}

// NewDataSource creates a DataSource over the job's staging table.
func NewDataSource(pool db.Pool, job *Job, opts ...Option) *DataSource {
	d := &DataSource{pool: pool, job: job}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLimit caps the next read window and invalidates any open cursor.
func (d *DataSource) SetLimit(n int) *DataSource {
	d.limit = n
	d.resetCursor()
	return d
}

// SetOffset skips rows in the next read window and invalidates any open
// cursor.
func (d *DataSource) SetOffset(n int) *DataSource {
	d.offset = n
	d.resetCursor()
	return d
}

// SetStatuses filters the next read window to rows in the given symbolic
// statuses and invalidates any open cursor.
func (d *DataSource) SetStatuses(statuses ...StatusFilter) *DataSource {
	d.statuses = statuses
	d.resetCursor()
	return d
}

func (d *DataSource) resetCursor() {
	if d.cur != nil {
		d.cur.Close()
		d.cur = nil
	}
	d.exhausted = false
}

// tableName returns the validated staging table name. The name is
// generated and stored by code, not users, but the guard stops a corrupt
// metadata document from pointing destructive SQL at an arbitrary table.
func (d *DataSource) tableName() (string, error) {
	if d.purged {
		return "", imerr.NewIntegrity("datasource: staging table has been purged")
	}
	name := d.job.Metadata.DataSource.TableName
	if name == "" {
		return "", imerr.NewIntegrity("datasource: job has no staging table")
	}
	if err := ValidateTableName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateTableName enforces the staging-table naming invariant: the
// reserved prefix followed by alphanumerics or underscores only.
func ValidateTableName(name string) error {
	if !strings.HasPrefix(name, TablePrefix) {
		return imerr.NewIntegrity("datasource: table %q lacks prefix %q", name, TablePrefix)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return imerr.NewIntegrity("datasource: table %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// selectColumns lists the tracking columns followed by the data columns,
// in staging order.
func (d *DataSource) selectColumns() []string {
	cols := []string{"_id", "_status", "_status_message", "_entity_id", "_related_entity_ids"}
	return append(cols, DataColumns(d.job.Metadata.DataSource.NumberOfColumns)...)
}

// openCursor issues the filtered SELECT for the configured window.
func (d *DataSource) openCursor(ctx context.Context) error {
	table, err := d.tableName()
	if err != nil {
		return err
	}

	query := "SELECT " + strings.Join(d.selectColumns(), ", ") + " FROM " + table
	var args []any
	if codes := storedCodeSet(d.statuses); len(codes) > 0 {
		query += " WHERE _status = ANY($1)"
		args = append(args, codes)
	}
	query += " ORDER BY _id"
	if d.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", d.limit)
		if d.offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", d.offset)
		}
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return imerr.NewStore("datasource: query rows", err)
	}
	d.cur = rows
	return nil
}

// Next advances the lazily-opened cursor and returns the next row, or
// (nil, nil) at end of data. After exhaustion it keeps returning
// (nil, nil) until a filter change resets the cursor.
func (d *DataSource) Next(ctx context.Context) (*Row, error) {
	if d.exhausted {
		return nil, nil
	}
	if d.cur == nil {
		if err := d.openCursor(ctx); err != nil {
			return nil, err
		}
	}

	if !d.cur.Next() {
		err := d.cur.Err()
		d.cur.Close()
		d.cur = nil
		d.exhausted = true
		if err != nil {
			return nil, imerr.NewStore("datasource: fetch row", err)
		}
		return nil, nil
	}

	return scanRow(d.cur, d.job.Metadata.DataSource.NumberOfColumns)
}

func scanRow(rows pgx.Rows, numCols int) (*Row, error) {
	row := &Row{}
	var msg *string
	var relatedJSON []byte
	vals := make([]*string, numCols)

	dest := []any{&row.ID, &row.Status, &msg, &row.EntityID, &relatedJSON}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, imerr.NewStore("datasource: scan row", err)
	}

	if msg != nil {
		row.StatusMessage = *msg
	}
	if relatedJSON != nil {
		if err := json.Unmarshal(relatedJSON, &row.RelatedEntityIDs); err != nil {
			return nil, eris.Wrap(err, "datasource: decode related entity ids")
		}
	}

	row.Values = make([]string, numCols)
	for i, v := range vals {
		if v != nil {
			row.Values[i] = strings.Trim(*v, " \t\r\n")
		}
	}
	return row, nil
}

// Rows drains the cursor into an ordered slice and resets it, so the next
// read re-queries with the configured filters.
func (d *DataSource) Rows(ctx context.Context) ([]Row, error) {
	var out []Row
	for {
		row, err := d.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		out = append(out, *row)
	}
	d.resetCursor()
	return out, nil
}

// RowCount counts rows whose status is in the union of the given filters.
// No filters counts all rows. Limit and offset do not apply.
func (d *DataSource) RowCount(ctx context.Context, statuses ...StatusFilter) (int64, error) {
	table, err := d.tableName()
	if err != nil {
		return 0, err
	}

	query := "SELECT count(*) FROM " + table
	var args []any
	if codes := storedCodeSet(statuses); len(codes) > 0 {
		query += " WHERE _status = ANY($1)"
		args = append(args, codes)
	}

	var n int64
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, imerr.NewStore("datasource: count rows", err)
	}
	return n, nil
}

// IsCompleted reports whether no untouched rows remain.
func (d *DataSource) IsCompleted(ctx context.Context) (bool, error) {
	n, err := d.RowCount(ctx, FilterNew)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// UpdateStatus records the processing outcome for one row. Status and
// message are always written; entity id and related ids only when
// provided. Repeat calls overwrite, they never accumulate.
func (d *DataSource) UpdateStatus(ctx context.Context, rowID int64, status RowStatus, message string, entityID *int64, relatedIDs map[string]int64) error {
	table, err := d.tableName()
	if err != nil {
		return err
	}

	query := "UPDATE " + table + " SET _status = $1, _status_message = $2"
	args := []any{string(status), message}

	if entityID != nil {
		args = append(args, *entityID)
		query += fmt.Sprintf(", _entity_id = $%d", len(args))
	}
	if len(relatedIDs) > 0 {
		relatedJSON, err := json.Marshal(relatedIDs)
		if err != nil {
			return eris.Wrap(err, "datasource: encode related entity ids")
		}
		args = append(args, relatedJSON)
		query += fmt.Sprintf(", _related_entity_ids = $%d", len(args))
	}

	args = append(args, rowID)
	query += fmt.Sprintf(" WHERE _id = $%d", len(args))

	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return imerr.NewStore("datasource: update status", err)
	}
	return nil
}

// Purge drops the staging table unless the retain check decides the new
// submitted values are compatible with the existing table. It returns the
// replacement DataSource metadata to store against the job. Calling Purge
// again after a successful purge is a no-op.
func (d *DataSource) Purge(ctx context.Context, newValues map[string]string) (SourceMeta, error) {
	if d.purged {
		return SourceMeta{}, nil
	}
	if d.job.Metadata.DataSource.TableName == "" {
		return SourceMeta{}, nil
	}

	if d.retain != nil && d.retain(d.job.Metadata.SubmittedValues, newValues) {
		return d.job.Metadata.DataSource, nil
	}

	table, err := d.tableName()
	if err != nil {
		return SourceMeta{}, err
	}
	if _, err := d.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return SourceMeta{}, imerr.NewStore("datasource: drop staging table", err)
	}
	d.resetCursor()
	d.purged = true
	return SourceMeta{}, nil
}

// ColumnHeaders returns the staged column headers, if any.
func (d *DataSource) ColumnHeaders() []string {
	return d.job.Metadata.DataSource.ColumnHeaders
}

// NumberOfColumns returns the staged column count.
func (d *DataSource) NumberOfColumns() int {
	return d.job.Metadata.DataSource.NumberOfColumns
}

// SubmittableFields returns the form fields declared by the source that
// staged this table.
func (d *DataSource) SubmittableFields() []string {
	return d.job.Metadata.DataSource.SubmittableFields
}
