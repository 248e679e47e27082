package mapping

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Spec is the on-disk form of a mapping: the ordered entries plus the
// lookup tables the resolver needs. Relationship types are listed rather
// than keyed so the file stays readable.
type Spec struct {
	Entries           []Entry            `yaml:"entries"`
	LocationTypes     map[string]string  `yaml:"location_types"`
	PhoneTypes        map[string]string  `yaml:"phone_types"`
	IMProviders       map[string]string  `yaml:"im_providers"`
	WebsiteTypes      map[string]string  `yaml:"website_types"`
	RelationshipTypes []RelationshipType `yaml:"relationship_types"`
	FieldLabels       map[string]string  `yaml:"field_labels"`
}

// Lookups converts the spec's lookup tables into resolver form. The
// "Primary" location selector is always available.
func (s *Spec) Lookups() Lookups {
	lk := Lookups{
		LocationTypes:     map[string]string{primarySelector: primarySelector},
		PhoneTypes:        s.PhoneTypes,
		IMProviders:       s.IMProviders,
		WebsiteTypes:      s.WebsiteTypes,
		RelationshipTypes: make(map[int64]RelationshipType, len(s.RelationshipTypes)),
		FieldLabels:       s.FieldLabels,
	}
	for k, v := range s.LocationTypes {
		lk.LocationTypes[k] = v
	}
	for _, rt := range s.RelationshipTypes {
		lk.RelationshipTypes[rt.ID] = rt
	}
	return lk
}

// LoadSpec reads and parses a mapping spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: read spec")
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, eris.Wrap(err, "mapping: parse spec")
	}
	return &spec, nil
}
