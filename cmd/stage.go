package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/db"
	"github.com/sells-group/importctl/internal/importer"
	"github.com/sells-group/importctl/internal/stage"
)

var (
	stageCSVPaths  []string
	stageXLSXPaths []string
	stageSheet     string
	stageSkipHdr   bool
	stageDelimiter string
	stageQuery     string
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Stage input rows into per-job staging tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var stagers []stage.Stager
		for _, path := range stageCSVPaths {
			s := &stage.CSVStager{Path: path, SkipHeader: stageSkipHdr, BatchSize: cfg.Stage.BatchSize}
			if stageDelimiter != "" {
				s.Delimiter = rune(stageDelimiter[0])
			}
			stagers = append(stagers, s)
		}
		for _, path := range stageXLSXPaths {
			stagers = append(stagers, &stage.XLSXStager{
				Path:       path,
				Sheet:      stageSheet,
				SkipHeader: stageSkipHdr,
				BatchSize:  cfg.Stage.BatchSize,
			})
		}
		if stageQuery != "" {
			stagers = append(stagers, &stage.SQLStager{Query: stageQuery})
		}
		if len(stagers) == 0 {
			return eris.New("nothing to stage: pass --csv, --xlsx, or --sql")
		}

		pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		registry := importer.NewJobRegistry(pool)
		jobs, err := stage.StageAll(ctx, pool, registry, stagers, cfg.Stage.MaxConcurrent)
		if err != nil {
			return eris.Wrap(err, "stage inputs")
		}

		for _, job := range jobs {
			fmt.Printf("%s\t%s\t%d rows x %d columns\n",
				job.ID,
				job.Metadata.DataSource.TableName,
				rowCount(ctx, pool, job),
				job.Metadata.DataSource.NumberOfColumns,
			)
		}

		zap.L().Info("staging complete", zap.Int("jobs", len(jobs)))
		return nil
	},
}

// rowCount is a best-effort count for display; errors render as zero.
func rowCount(ctx context.Context, pool db.Pool, job *importer.Job) int64 {
	n, err := importer.NewDataSource(pool, job).RowCount(ctx)
	if err != nil {
		return 0
	}
	return n
}

func init() {
	stageCmd.Flags().StringSliceVar(&stageCSVPaths, "csv", nil, "CSV file(s) to stage")
	stageCmd.Flags().StringSliceVar(&stageXLSXPaths, "xlsx", nil, "XLSX file(s) to stage")
	stageCmd.Flags().StringVar(&stageSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	stageCmd.Flags().BoolVar(&stageSkipHdr, "skip-header", false, "treat the first row as column headers")
	stageCmd.Flags().StringVar(&stageDelimiter, "delimiter", "", "CSV field delimiter (default ',')")
	stageCmd.Flags().StringVar(&stageQuery, "sql", "", "SELECT query to stage from an existing table")
	rootCmd.AddCommand(stageCmd)
}
