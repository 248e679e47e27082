package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/imerr"
	"github.com/sells-group/importctl/internal/importer"
)

// SQLStager stages the result of a SELECT query from an existing table.
// The query's column names become the staged headers; the columns are
// renamed to the uniform staging names so the import core reads every
// source the same way.
type SQLStager struct {
	Query string
}

func (s *SQLStager) Kind() string { return "sql" }

func (s *SQLStager) SubmittableFields() []string {
	return []string{"query"}
}

func (s *SQLStager) Values() map[string]string {
	return map[string]string{
		"source": s.Kind(),
		"query":  s.Query,
	}
}

// Stage materializes the query into a fresh staging table.
func (s *SQLStager) Stage(ctx context.Context, pool db.Pool) (importer.SourceMeta, error) {
	query := strings.TrimSpace(s.Query)
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return importer.SourceMeta{}, imerr.NewIntegrity("stage: only SELECT queries can be staged")
	}

	table := newTableName()
	if err := importer.ValidateTableName(table); err != nil {
		return importer.SourceMeta{}, err
	}

	create := fmt.Sprintf("CREATE TABLE %s AS (%s)", table, query)
	if _, err := pool.Exec(ctx, create); err != nil {
		return importer.SourceMeta{}, imerr.NewStore("stage: materialize query", err)
	}

	headers, err := s.columnNames(ctx, pool, table)
	if err != nil {
		return importer.SourceMeta{}, err
	}

	// Rename to the uniform data-column names, keeping the originals as
	// headers.
	for i, name := range headers {
		rename := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %q TO %s", table, name, importer.DataColumn(i))
		if _, err := pool.Exec(ctx, rename); err != nil {
			return importer.SourceMeta{}, imerr.NewStore("stage: rename column", err)
		}
	}

	if err := addTrackingColumns(ctx, pool, table); err != nil {
		return importer.SourceMeta{}, err
	}

	return importer.SourceMeta{
		TableName:         table,
		NumberOfColumns:   len(headers),
		ColumnHeaders:     headers,
		SubmittableFields: s.SubmittableFields(),
	}, nil
}

func (s *SQLStager) columnNames(ctx context.Context, pool db.Pool, table string) ([]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_name = $1 ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, imerr.NewStore("stage: read columns", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, imerr.NewStore("stage: scan column", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, imerr.NewStore("stage: read columns", err)
	}
	if len(names) == 0 {
		return nil, eris.New("stage: staged query produced no columns")
	}
	return names, nil
}
