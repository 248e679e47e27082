package mapping

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/importctl/internal/imerr"
)

// primarySelector is the non-numeric location selector meaning "the
// entity's primary location".
const primarySelector = "Primary"

var titleCaser = cases.Title(language.English)

// Resolve decodes the ordered mapping entries against the lookup tables.
// Resolution is deterministic and pure. An unresolvable selector degrades
// to a coarser mapping for that column; only an unknown relationship-type
// id is fatal, because a relationship column cannot be imported at all
// without its type.
func Resolve(entries []Entry, lk Lookups) (*Resolved, error) {
	resolved := &Resolved{Columns: make([]Column, len(entries))}

	for i, entry := range entries {
		col, err := resolveColumn(entry, lk)
		if err != nil {
			return nil, err
		}
		resolved.Columns[i] = col
	}
	return resolved, nil
}

func resolveColumn(entry Entry, lk Lookups) (Column, error) {
	col := Column{Field: entry.Field}
	sel1, sel2, sel3 := entry.Selectors[0], entry.Selectors[1], entry.Selectors[2]

	var header []string
	if label, ok := lk.FieldLabels[entry.Field]; ok {
		header = append(header, label)
	}

	// Location-qualified (or website-qualified) plain fields.
	if sel1 != "" && (isNumeric(sel1) || sel1 == primarySelector) {
		if entry.Field == "url" {
			if label, ok := lk.WebsiteTypes[sel1]; ok {
				header = append(header, label)
				col.WebsiteTypeID = sel1
			}
		} else if label, ok := lk.LocationTypes[sel1]; ok {
			header = append(header, label)
			col.LocationTypeID = sel1

			if sel2 != "" && isNumeric(sel2) {
				switch entry.Field {
				case "phone", "phone_ext":
					if label, ok := lk.PhoneTypes[sel2]; ok {
						header = append(header, label)
						col.PhoneTypeID = sel2
					}
				case "im":
					if label, ok := lk.IMProviders[sel2]; ok {
						header = append(header, label)
						col.IMProviderID = sel2
					}
				}
			}
		}
	}

	// Relationship fields encode "<relationshipTypeId>_a_b" or "_b_a".
	if typeID, direction, ok := parseRelationshipField(entry.Field); ok {
		relType, found := lk.RelationshipTypes[typeID]
		if !found {
			return Column{}, imerr.NewIntegrity("mapping: unknown relationship type %d in field %q", typeID, entry.Field)
		}

		if sel1 != "" {
			header = append(header, titleCaser.String(strings.ReplaceAll(sel1, "_", " ")))
		}

		rel := &Relationship{
			TypeID:    typeID,
			Direction: direction,
			Field:     entry.Field,
		}
		if direction == DirectionAB {
			rel.ContactType = relType.ContactTypeB
		} else {
			rel.ContactType = relType.ContactTypeA
		}

		if sel1 != "" {
			rel.Detail = sel1
			if sel2 != "" {
				if sel1 == "url" {
					if label, ok := lk.WebsiteTypes[sel2]; ok {
						header = append(header, label)
						rel.WebsiteTypeID = sel2
					}
				} else if label, ok := lk.LocationTypes[sel2]; ok {
					header = append(header, label)
					rel.LocationTypeID = sel2

					if sel3 != "" {
						switch sel1 {
						case "phone", "phone_ext":
							if label, ok := lk.PhoneTypes[sel3]; ok {
								header = append(header, label)
								rel.PhoneTypeID = sel3
							}
						case "im":
							if label, ok := lk.IMProviders[sel3]; ok {
								header = append(header, label)
								rel.IMProviderID = sel3
							}
						}
					}
				}
			}
		}
		col.Relationship = rel
	}

	col.Header = strings.Join(header, " - ")
	return col, nil
}

// parseRelationshipField splits a target field name of the form
// "<id>_<first>_<second>" and reports whether it designates a
// relationship column, i.e. first/second form the pair (a,b) or (b,a).
func parseRelationshipField(field string) (int64, Direction, bool) {
	parts := strings.SplitN(field, "_", 3)
	if len(parts) != 3 {
		return 0, "", false
	}
	first, second := parts[1], parts[2]
	var direction Direction
	switch {
	case first == "a" && second == "b":
		direction = DirectionAB
	case first == "b" && second == "a":
		direction = DirectionBA
	default:
		return 0, "", false
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, direction, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
