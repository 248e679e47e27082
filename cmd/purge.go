package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/importer"
	"github.com/sells-group/importctl/internal/stage"
)

var (
	purgeJobID   string
	purgeKeepJob bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop an import job's staging table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		jobID, err := uuid.Parse(purgeJobID)
		if err != nil {
			return eris.Wrap(err, "parse job id")
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

		kind := job.Metadata.SubmittedValues["source"]
		ds := importer.NewDataSource(pool, job, importer.WithRetain(stage.Retain(kind)))

		// No replacement submission: the retain check sees empty values
		// and the table is dropped.
		meta, err := ds.Purge(ctx, nil)
		if err != nil {
			return err
		}

		if purgeKeepJob {
			if err := registry.UpdateSourceMeta(ctx, jobID, meta); err != nil {
				return err
			}
		} else if err := registry.Delete(ctx, jobID); err != nil {
			return err
		}

		zap.L().Info("purged",
			zap.String("job_id", jobID.String()),
			zap.Bool("job_kept", purgeKeepJob),
		)
		return nil
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeJobID, "job", "", "import job id (required)")
	purgeCmd.Flags().BoolVar(&purgeKeepJob, "keep-job", false, "keep the job record, clearing its datasource metadata")
	_ = purgeCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(purgeCmd)
}
