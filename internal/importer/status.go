// Package importer implements the import-job core: the staging-table
// DataSource, the job registry, the run orchestrator, and the post-import
// group/tag aggregator.
package importer

// RowStatus is the stored status code of one staged row.
type RowStatus string

const (
	StatusNew            RowStatus = "new"
	StatusImported       RowStatus = "imported"
	StatusError          RowStatus = "error"
	StatusInvalid        RowStatus = "invalid"
	StatusDuplicate      RowStatus = "duplicate"
	StatusNoMatch        RowStatus = "invalid_no_match"
	StatusAddressWarning RowStatus = "warning_unparsed_address"
)

// StatusFilter is a symbolic status category used when selecting rows.
// One filter can cover several stored codes.
type StatusFilter string

const (
	FilterValid          StatusFilter = "VALID"
	FilterError          StatusFilter = "ERROR"
	FilterDuplicate      StatusFilter = "DUPLICATE"
	FilterNoMatch        StatusFilter = "NO_MATCH"
	FilterAddressWarning StatusFilter = "UNPARSED_ADDRESS_WARNING"
	FilterNew            StatusFilter = "new"
)

// statusMapping maps each symbolic filter to the stored codes it selects.
var statusMapping = map[StatusFilter][]RowStatus{
	FilterValid:          {StatusImported, StatusNew},
	FilterError:          {StatusError, StatusInvalid},
	FilterDuplicate:      {StatusDuplicate},
	FilterNoMatch:        {StatusNoMatch},
	FilterAddressWarning: {StatusAddressWarning},
	FilterNew:            {StatusNew},
}

// StoredCodes returns the stored status codes selected by the filter.
// Unknown filters select nothing.
func (f StatusFilter) StoredCodes() []RowStatus {
	return statusMapping[f]
}

// storedCodeSet flattens a set of filters into the union of their stored
// codes, preserving first-seen order.
func storedCodeSet(filters []StatusFilter) []string {
	seen := make(map[RowStatus]bool)
	var codes []string
	for _, f := range filters {
		for _, code := range f.StoredCodes() {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, string(code))
			}
		}
	}
	return codes
}
