package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/collections"
	"github.com/sells-group/importctl/internal/importer"
	"github.com/sells-group/importctl/internal/mapping"
)

var (
	runJobID     string
	runEntity    string
	runMapping   string
	runBudget    time.Duration
	runNewGroup  string
	runGroupDesc string
	runGroupIDs  []int64
	runNewTag    string
	runTagDesc   string
	runTagIDs    []int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an import job to completion in time-budgeted passes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		jobID, err := uuid.Parse(runJobID)
		if err != nil {
			return eris.Wrap(err, "parse job id")
		}

		spec, err := mapping.LoadSpec(runMapping)
		if err != nil {
			return err
		}

		pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		registry := importer.NewJobRegistry(pool)
		job, err := registry.Get(ctx, jobID)
		if err != nil {
			return err
		}

		ds := importer.NewDataSource(pool, job)
		total, err := ds.RowCount(ctx)
		if err != nil {
			return err
		}

		budget := runBudget
		if budget == 0 {
			budget = cfg.Import.TimeBudget()
		}

		opts := importer.RunOptions{
			Entity:        runEntity,
			StatusID:      job.ID.String(),
			TotalRowCount: total,
			TimeBudget:    budget,
			GroupIDs:      runGroupIDs,
			TagIDs:        runTagIDs,
		}
		if runNewGroup != "" {
			opts.NewGroup = &collections.Spec{Title: runNewGroup, Description: runGroupDesc}
		}
		if runNewTag != "" {
			opts.NewTag = &collections.Spec{Title: runNewTag, Description: runTagDesc}
		}

		runner := importer.NewRunner(
			importer.DefaultParsers,
			collections.NewPostgresService(pool, collections.KindGroup),
			collections.NewPostgresService(pool, collections.KindTag),
		)

		log := zap.L().With(zap.String("job_id", job.ID.String()))
		var report *importer.Report
		for pass := 1; pass <= cfg.Import.MaxPasses; pass++ {
			report, err = runner.RunImport(ctx, job, spec.Entries, spec.Lookups(), opts)
			if err != nil {
				return err
			}

			// Later passes attach to the collections the first pass created
			// instead of creating them again.
			if opts.NewGroup != nil && len(report.GroupAdditions) > 0 {
				opts.NewGroup = nil
				opts.GroupIDs = additionIDs(report.GroupAdditions)
			}
			if opts.NewTag != nil && len(report.TagAdditions) > 0 {
				opts.NewTag = nil
				opts.TagIDs = additionIDs(report.TagAdditions)
			}

			if runner.IsComplete() {
				break
			}
			log.Info("pass complete, rows remain", zap.Int("pass", pass))
		}

		return printReport(cmd, report, ds)
	},
}

// printReport writes the run summary: per-status row counts followed by
// any group/tag additions.
func printReport(cmd *cobra.Command, report *importer.Report, ds *importer.DataSource) error {
	ctx := cmd.Context()

	counts := []struct {
		label  string
		filter []importer.StatusFilter
	}{
		{"total", nil},
		{"valid", []importer.StatusFilter{importer.FilterValid}},
		{"error", []importer.StatusFilter{importer.FilterError}},
		{"duplicate", []importer.StatusFilter{importer.FilterDuplicate}},
		{"no match", []importer.StatusFilter{importer.FilterNoMatch}},
		{"address warning", []importer.StatusFilter{importer.FilterAddressWarning}},
		{"unprocessed", []importer.StatusFilter{importer.FilterNew}},
	}
	for _, c := range counts {
		n, err := ds.RowCount(ctx, c.filter...)
		if err != nil {
			return err
		}
		fmt.Printf("%-16s %d\n", c.label, n)
	}
	if report.RelatedCount > 0 {
		fmt.Printf("%-16s %d\n", "related", report.RelatedCount)
	}

	printAdditions("group", report.GroupAdditions)
	printAdditions("tag", report.TagAdditions)
	return nil
}

// additionIDs returns the collections that actually exist after an
// attachment pass, skipping failed creates.
func additionIDs(additions []importer.Addition) []int64 {
	var ids []int64
	for _, a := range additions {
		if a.CollectionID != 0 {
			ids = append(ids, a.CollectionID)
		}
	}
	return ids
}

func printAdditions(kind string, additions []importer.Addition) {
	for _, a := range additions {
		marker := ""
		if a.New {
			marker = " (new)"
		}
		if a.Err != "" {
			fmt.Printf("%s %q%s: attach failed: %s\n", kind, a.Name, marker, a.Err)
			continue
		}
		fmt.Printf("%s %q%s: added %d, not added %d\n", kind, a.Name, marker, a.Added, a.NotAdded)
	}
}

func init() {
	runCmd.Flags().StringVar(&runJobID, "job", "", "import job id (required)")
	runCmd.Flags().StringVar(&runEntity, "entity", "", "entity parser to run (required)")
	runCmd.Flags().StringVar(&runMapping, "mapping", "", "path to mapping spec YAML (required)")
	runCmd.Flags().DurationVar(&runBudget, "budget", 0, "per-pass time budget (default from config)")
	runCmd.Flags().StringVar(&runNewGroup, "new-group", "", "create a group and add imported records to it")
	runCmd.Flags().StringVar(&runGroupDesc, "new-group-desc", "", "description for the new group")
	runCmd.Flags().Int64SliceVar(&runGroupIDs, "group", nil, "existing group id(s) to add imported records to")
	runCmd.Flags().StringVar(&runNewTag, "new-tag", "", "create a tag and tag imported records with it")
	runCmd.Flags().StringVar(&runTagDesc, "new-tag-desc", "", "description for the new tag")
	runCmd.Flags().Int64SliceVar(&runTagIDs, "tag", nil, "existing tag id(s) to tag imported records with")
	_ = runCmd.MarkFlagRequired("job")
	_ = runCmd.MarkFlagRequired("entity")
	_ = runCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(runCmd)
}
