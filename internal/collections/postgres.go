package collections

import (
	"context"
	"fmt"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/imerr"
)

// Kind selects which collection tables a PostgresService operates on.
type Kind string

const (
	KindGroup Kind = "group"
	KindTag   Kind = "tag"
)

func (k Kind) table() string {
	return fmt.Sprintf("import_%ss", k)
}

func (k Kind) memberTable() string {
	return fmt.Sprintf("import_%s_members", k)
}

// PostgresService implements Service against the import_groups/import_tags
// tables and their membership tables.
type PostgresService struct {
	pool db.Pool
	kind Kind
}

// NewPostgresService creates a Service for the given collection kind.
func NewPostgresService(pool db.Pool, kind Kind) *PostgresService {
	return &PostgresService{pool: pool, kind: kind}
}

// Migrate creates the collection and membership tables if absent.
func (s *PostgresService) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS %[2]s (
	collection_id BIGINT NOT NULL REFERENCES %[1]s(id),
	entity_id     BIGINT NOT NULL,
	added_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection_id, entity_id)
)`, s.kind.table(), s.kind.memberTable())

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return imerr.NewStore("collections: migrate", err)
	}
	return nil
}

// Create inserts a new collection and returns its id.
func (s *PostgresService) Create(ctx context.Context, spec Spec) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (title, description) VALUES ($1, $2) RETURNING id`, s.kind.table()),
		spec.Title, spec.Description,
	).Scan(&id)
	if err != nil {
		return 0, imerr.NewStore("collections: create", err)
	}
	return id, nil
}

// AddMembers attaches the entities to the collection. Entities already
// members are left alone and counted as not added, so the call is
// idempotent.
func (s *PostgresService) AddMembers(ctx context.Context, collectionID int64, entityIDs []int64) (AddResult, error) {
	result := AddResult{Attempted: len(entityIDs)}
	if len(entityIDs) == 0 {
		return result, nil
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (collection_id, entity_id)
		 SELECT $1, unnest($2::bigint[])
		 ON CONFLICT DO NOTHING`, s.kind.memberTable()),
		collectionID, entityIDs,
	)
	if err != nil {
		return AddResult{}, imerr.NewStore("collections: add members", err)
	}

	result.Added = int(tag.RowsAffected())
	result.NotAdded = result.Attempted - result.Added
	return result, nil
}

// Title returns the display title of a collection.
func (s *PostgresService) Title(ctx context.Context, collectionID int64) (string, error) {
	var title string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT title FROM %s WHERE id = $1`, s.kind.table()),
		collectionID,
	).Scan(&title)
	if err != nil {
		return "", imerr.NewStore("collections: title", err)
	}
	return title, nil
}
