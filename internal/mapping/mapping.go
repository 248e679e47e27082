// Package mapping resolves a user's flat, positional column-mapping
// specification into typed per-column parameters an entity parser can
// consume, plus the human-readable header labels shown back to the user.
package mapping

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Entry is one user-chosen mapping for one spreadsheet column: the target
// field name plus up to three ordered selector values.
type Entry struct {
	Field     string
	Selectors [3]string
}

// entryDoc is the serialized form of an Entry. Selectors are written as a
// short sequence; most entries carry fewer than three.
type entryDoc struct {
	Field     string   `yaml:"field" json:"field"`
	Selectors []string `yaml:"selectors,flow,omitempty" json:"selectors,omitempty"`
}

func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	var doc entryDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	return e.fromDoc(doc)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return e.fromDoc(doc)
}

func (e *Entry) fromDoc(doc entryDoc) error {
	if len(doc.Selectors) > len(e.Selectors) {
		return eris.Errorf("mapping: field %q has %d selectors, at most %d allowed",
			doc.Field, len(doc.Selectors), len(e.Selectors))
	}
	*e = Entry{Field: doc.Field}
	copy(e.Selectors[:], doc.Selectors)
	return nil
}

func (e Entry) MarshalYAML() (any, error) {
	return e.toDoc(), nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.toDoc())
}

func (e Entry) toDoc() entryDoc {
	sel := e.Selectors[:]
	for len(sel) > 0 && sel[len(sel)-1] == "" {
		sel = sel[:len(sel)-1]
	}
	doc := entryDoc{Field: e.Field}
	if len(sel) > 0 {
		doc.Selectors = append([]string(nil), sel...)
	}
	return doc
}

// RelationshipType describes one relationship type from the lookup table.
type RelationshipType struct {
	ID           int64  `yaml:"id" json:"id"`
	ContactTypeA string `yaml:"contact_type_a" json:"contact_type_a"`
	ContactTypeB string `yaml:"contact_type_b" json:"contact_type_b"`
}

// Lookups holds the auxiliary lookup tables consulted during resolution.
// Type maps are keyed by the selector value (a numeric id rendered as a
// string, or the literal "Primary" for location types) and hold display
// labels.
type Lookups struct {
	LocationTypes     map[string]string
	PhoneTypes        map[string]string
	IMProviders       map[string]string
	WebsiteTypes      map[string]string
	RelationshipTypes map[int64]RelationshipType

	// FieldLabels maps target field names (including qualified
	// relationship field names like "5_a_b") to display labels.
	FieldLabels map[string]string
}

// Direction is the relationship direction encoded in a target field name.
type Direction string

const (
	DirectionAB Direction = "a_b"
	DirectionBA Direction = "b_a"
)

// Relationship holds the resolved parameters of a relationship column:
// one that creates or matches a related entity instead of setting a field
// on the primary entity.
type Relationship struct {
	TypeID    int64
	Direction Direction

	// Field is the fully qualified relationship field name, e.g. "5_a_b".
	Field string

	// ContactType is the related contact's sub-type, taken from the
	// relationship type's contact_type_<second> column.
	ContactType string

	// Detail is selector 1: the field on the related contact this column
	// feeds ("phone", "url", ...). Empty when the column maps the related
	// contact itself rather than a sub-entity.
	Detail string

	LocationTypeID string
	WebsiteTypeID  string
	PhoneTypeID    string
	IMProviderID   string
}

// Column is the resolved parameter set for one spreadsheet column.
type Column struct {
	// Field is the literal target field key being mapped.
	Field string

	LocationTypeID string
	PhoneTypeID    string
	IMProviderID   string
	WebsiteTypeID  string

	// Relationship is set when the target field designates a relationship
	// column.
	Relationship *Relationship

	// Header is the human-readable label for the column: the field's
	// display label joined with every resolved sub-selector label by " - ".
	Header string
}

// Resolved is the full resolution output, in column order.
type Resolved struct {
	Columns []Column
}

// Fields returns the target field key per column, in order.
func (r *Resolved) Fields() []string {
	fields := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		fields[i] = c.Field
	}
	return fields
}

// Headers returns the human-readable header label per column, in order.
func (r *Resolved) Headers() []string {
	headers := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		headers[i] = c.Header
	}
	return headers
}
