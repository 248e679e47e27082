package importer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/imerr"
)

// SourceMeta is the datasource-specific subtree of a job's metadata:
// the staging table name and the staged shape.
type SourceMeta struct {
	TableName         string   `json:"table_name,omitempty"`
	NumberOfColumns   int      `json:"number_of_columns,omitempty"`
	ColumnHeaders     []string `json:"column_headers,omitempty"`
	SubmittableFields []string `json:"submittable_fields,omitempty"`
}

// Metadata is the nested metadata document stored against a job.
type Metadata struct {
	SubmittedValues map[string]string `json:"submitted_values,omitempty"`
	DataSource      SourceMeta        `json:"DataSource,omitzero"`
}

// Job identifies one import attempt. It persists across orchestrator
// invocations so long imports can be resumed.
type Job struct {
	ID        uuid.UUID
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobRegistry provides read/update access to the import_user_jobs table.
type JobRegistry struct {
	pool db.Pool
}

// NewJobRegistry creates a JobRegistry backed by the given pool.
func NewJobRegistry(pool db.Pool) *JobRegistry {
	return &JobRegistry{pool: pool}
}

// jobsSchema creates the job registry table.
const jobsSchema = `
CREATE TABLE IF NOT EXISTS import_user_jobs (
	id         UUID PRIMARY KEY,
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the registry table if it does not exist.
func (r *JobRegistry) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, jobsSchema); err != nil {
		return imerr.NewStore("jobs: migrate", err)
	}
	return nil
}

// Create inserts a new job with the given metadata and returns it.
func (r *JobRegistry) Create(ctx context.Context, meta Metadata) (*Job, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: marshal metadata")
	}

	job := &Job{ID: uuid.New(), Metadata: meta}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO import_user_jobs (id, metadata) VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		job.ID, metaJSON,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, imerr.NewStore("jobs: create", err)
	}
	return job, nil
}

// Get fetches a job by id.
func (r *JobRegistry) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	job := &Job{ID: id}
	var metaJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT metadata, created_at, updated_at FROM import_user_jobs WHERE id = $1`,
		id,
	).Scan(&metaJSON, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, imerr.NewStore("jobs: get", err)
	}
	if err := json.Unmarshal(metaJSON, &job.Metadata); err != nil {
		return nil, eris.Wrap(err, "jobs: unmarshal metadata")
	}
	return job, nil
}

// List returns all jobs, most recent first.
func (r *JobRegistry) List(ctx context.Context) ([]Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, metadata, created_at, updated_at FROM import_user_jobs
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, imerr.NewStore("jobs: list", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var metaJSON []byte
		if err := rows.Scan(&j.ID, &metaJSON, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, imerr.NewStore("jobs: scan", err)
		}
		if err := json.Unmarshal(metaJSON, &j.Metadata); err != nil {
			return nil, eris.Wrap(err, "jobs: unmarshal metadata")
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateMetadata replaces the job's full metadata document.
func (r *JobRegistry) UpdateMetadata(ctx context.Context, id uuid.UUID, meta Metadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return eris.Wrap(err, "jobs: marshal metadata")
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE import_user_jobs SET metadata = $1, updated_at = now() WHERE id = $2`,
		metaJSON, id,
	)
	if err != nil {
		return imerr.NewStore("jobs: update metadata", err)
	}
	return nil
}

// UpdateSourceMeta replaces only the DataSource subtree of the job's
// metadata, leaving submitted values untouched.
func (r *JobRegistry) UpdateSourceMeta(ctx context.Context, id uuid.UUID, meta SourceMeta) error {
	job, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	job.Metadata.DataSource = meta
	return r.UpdateMetadata(ctx, id, job.Metadata)
}

// Delete removes a job from the registry. The staging table is the
// DataSource's to purge, not the registry's.
func (r *JobRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM import_user_jobs WHERE id = $1`, id,
	); err != nil {
		return imerr.NewStore("jobs: delete", err)
	}
	return nil
}
