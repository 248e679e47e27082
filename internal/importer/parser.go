package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/importctl/internal/mapping"
)

// Mode selects how a parser processes staged rows.
type Mode int

const (
	// ModePreview validates rows without persisting entities.
	ModePreview Mode = iota
	// ModeImport validates and persists, writing per-row outcomes back to
	// the DataSource.
	ModeImport
)

// Parser is the entity-specific row processor. Implementations read
// unprocessed rows via the DataSource, validate and persist each, and
// record the outcome with UpdateStatus. The orchestrator never inspects
// rows itself.
type Parser interface {
	// Run processes rows until done or until the parser decides its time
	// budget is spent. statusID keys external progress reporting.
	Run(ctx context.Context, mode Mode, statusID string, totalRowCount int64) error

	// IsComplete reports whether every row assigned to the parser has
	// left the "new" state.
	IsComplete() bool

	// ImportedIDs returns the entities created or matched directly.
	ImportedIDs() []int64

	// RelatedImportedIDs returns entities created as a side effect of
	// relationship columns.
	RelatedImportedIDs() []int64
}

// ParserFactory builds a parser for one job from its resolved mapping.
type ParserFactory func(resolved *mapping.Resolved, jobID uuid.UUID) (Parser, error)

// DefaultParsers is the process-wide registry. Product binaries register
// their entity parsers here, typically from init functions, the way SQL
// drivers self-register.
var DefaultParsers = NewParserRegistry()

// ParserRegistry maps entity names to parser factories.
type ParserRegistry struct {
	factories map[string]ParserFactory
	order     []string // insertion order for deterministic listing
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{factories: make(map[string]ParserFactory)}
}

// Register adds a factory under an entity name. Re-registering a name is
// an error.
func (r *ParserRegistry) Register(entity string, factory ParserFactory) error {
	if _, exists := r.factories[entity]; exists {
		return eris.Errorf("parser: entity %q already registered", entity)
	}
	r.factories[entity] = factory
	r.order = append(r.order, entity)
	return nil
}

// Get returns the factory for an entity name.
func (r *ParserRegistry) Get(entity string) (ParserFactory, error) {
	factory, ok := r.factories[entity]
	if !ok {
		return nil, eris.Errorf("parser: no parser registered for entity %q", entity)
	}
	return factory, nil
}

// Names returns the registered entity names in registration order.
func (r *ParserRegistry) Names() []string {
	return append([]string(nil), r.order...)
}
