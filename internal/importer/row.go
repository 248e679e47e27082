package importer

import "fmt"

// Row is one staged row read back from the staging table.
type Row struct {
	// ID is the immutable row sequence id assigned at staging time.
	ID int64

	// Values holds the original column values, positionally ordered and
	// whitespace-trimmed. Callers know the column order from the mapping.
	Values []string

	Status        RowStatus
	StatusMessage string

	// EntityID is the primary entity created or matched for this row, if
	// the parser recorded one.
	EntityID *int64

	// RelatedEntityIDs maps role names to entities created as a side
	// effect of relationship columns, e.g. {"related_contact": 4}.
	RelatedEntityIDs map[string]int64
}

// DataColumn returns the staging-table name of the i-th data column
// (zero-based). Tracking columns use a leading underscore so they never
// clash with this namespace.
func DataColumn(i int) string {
	return fmt.Sprintf("col_%d", i+1)
}

// DataColumns returns the staging-table names of the first n data columns.
func DataColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = DataColumn(i)
	}
	return cols
}
