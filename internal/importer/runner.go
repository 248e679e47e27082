package importer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/collections"
	"github.com/sells-group/importctl/internal/mapping"
)

// RunOptions configures one orchestration pass. Every recognized option
// is an explicit field; there is no dynamic parameter injection.
type RunOptions struct {
	// Entity selects the registered parser (e.g. "contact", "membership").
	Entity string

	// StatusID keys external progress reporting for this run.
	StatusID string

	// TotalRowCount is the known staged row count, handed to the parser.
	TotalRowCount int64

	// TimeBudget bounds this pass. Zero means unbounded. The budget is
	// advisory: it is handed to the parser as a context deadline and the
	// parser decides when to stop; rows already processed stay committed.
	TimeBudget time.Duration

	NewGroup *collections.Spec
	GroupIDs []int64
	NewTag   *collections.Spec
	TagIDs   []int64
}

// Report is the outcome of one orchestration pass.
type Report struct {
	Resolved       *mapping.Resolved
	ImportedCount  int
	RelatedCount   int
	GroupAdditions []Addition
	TagAdditions   []Addition
}

// Runner drives an entity parser over a job's staged rows and runs the
// post-import group/tag attachment.
type Runner struct {
	registry *ParserRegistry
	groups   *Aggregator
	tags     *Aggregator

	parser Parser // parser from the most recent pass
}

// NewRunner creates a Runner. The group and tag services may be nil when
// the caller never requests post-import attachment.
func NewRunner(registry *ParserRegistry, groups, tags collections.Service) *Runner {
	r := &Runner{registry: registry}
	if groups != nil {
		r.groups = NewAggregator(groups)
	}
	if tags != nil {
		r.tags = NewAggregator(tags)
	}
	return r
}

// RunImport resolves the mapping, runs the entity parser over the job's
// unprocessed rows, and attaches the produced entities to the requested
// groups and tags. Attachment failures are reported per collection in the
// Report, never as an error: a failure to tag does not unwind imported
// rows. Row statuses persist between passes, so a caller can re-invoke
// with a fresh time budget until IsComplete reports true.
func (r *Runner) RunImport(ctx context.Context, job *Job, entries []mapping.Entry, lookups mapping.Lookups, opts RunOptions) (*Report, error) {
	log := zap.L().With(
		zap.String("component", "importer.runner"),
		zap.String("job_id", job.ID.String()),
		zap.String("entity", opts.Entity),
	)

	resolved, err := mapping.Resolve(entries, lookups)
	if err != nil {
		return nil, err
	}

	factory, err := r.registry.Get(opts.Entity)
	if err != nil {
		return nil, err
	}
	parser, err := factory(resolved, job.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "runner: construct %s parser", opts.Entity)
	}
	r.parser = parser

	runCtx := ctx
	if opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.TimeBudget)
		defer cancel()
	}

	start := time.Now()
	if err := parser.Run(runCtx, ModeImport, opts.StatusID, opts.TotalRowCount); err != nil {
		return nil, eris.Wrapf(err, "runner: run %s parser", opts.Entity)
	}

	imported := parser.ImportedIDs()
	related := parser.RelatedImportedIDs()

	// Duplicates are allowed in the combined set: attachment counts are
	// per collection, not per unique entity.
	combined := make([]int64, 0, len(imported)+len(related))
	combined = append(combined, imported...)
	combined = append(combined, related...)

	report := &Report{
		Resolved:      resolved,
		ImportedCount: len(imported),
		RelatedCount:  len(related),
	}

	log.Info("parser pass complete",
		zap.Int("imported", len(imported)),
		zap.Int("related", len(related)),
		zap.Bool("complete", parser.IsComplete()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if r.groups != nil && (opts.NewGroup != nil || len(opts.GroupIDs) > 0) {
		additions, err := r.groups.AttachToCollections(ctx, combined, opts.GroupIDs, opts.NewGroup)
		if err != nil {
			return nil, err
		}
		report.GroupAdditions = additions
	}

	if r.tags != nil && (opts.NewTag != nil || len(opts.TagIDs) > 0) {
		additions, err := r.tags.AttachToCollections(ctx, combined, opts.TagIDs, opts.NewTag)
		if err != nil {
			return nil, err
		}
		report.TagAdditions = additions
	}

	return report, nil
}

// IsComplete delegates to the most recent pass's parser: true when every
// row it was assigned has left the "new" state. False before any pass.
func (r *Runner) IsComplete() bool {
	if r.parser == nil {
		return false
	}
	return r.parser.IsComplete()
}
