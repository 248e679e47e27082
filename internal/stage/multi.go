package stage

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/importer"
)

// StageAll stages every input concurrently, creating one job per stager.
// Jobs come back in input order. The first failure cancels the remaining
// stagers and is returned.
func StageAll(ctx context.Context, pool db.Pool, registry *importer.JobRegistry, stagers []Stager, maxConcurrent int) ([]*importer.Job, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	jobs := make([]*importer.Job, len(stagers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, s := range stagers {
		g.Go(func() error {
			log := zap.L().With(zap.String("component", "stage"), zap.String("kind", s.Kind()))

			meta, err := s.Stage(gctx, pool)
			if err != nil {
				return err
			}

			job, err := registry.Create(gctx, importer.Metadata{
				SubmittedValues: s.Values(),
				DataSource:      meta,
			})
			if err != nil {
				return err
			}

			log.Info("staged",
				zap.String("job_id", job.ID.String()),
				zap.String("table", meta.TableName),
				zap.Int("columns", meta.NumberOfColumns),
			)
			jobs[i] = job
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}
