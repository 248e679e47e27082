package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/importctl/internal/importer"
)

var (
	statusJobID  string
	statusErrors bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report per-status row counts for an import job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		jobID, err := uuid.Parse(statusJobID)
		if err != nil {
			return eris.Wrap(err, "parse job id")
		}

		pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		job, err := importer.NewJobRegistry(pool).Get(ctx, jobID)
		if err != nil {
			return err
		}
		ds := importer.NewDataSource(pool, job)

		filters := []struct {
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
		for _, f := range filters {
			n, err := ds.RowCount(ctx, f.filter...)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %d\n", f.label, n)
		}

		done, err := ds.IsCompleted(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%-16s %v\n", "completed", done)

		if statusErrors {
			return printErrorLog(ctx, ds)
		}
		return nil
	},
}

// printErrorLog lists the diagnostic message of every errored row.
func printErrorLog(ctx context.Context, ds *importer.DataSource) error {
	ds.SetStatuses(importer.FilterError, importer.FilterNoMatch)
	rows, err := ds.Rows(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Printf("row %d [%s]: %s\n", row.ID, row.Status, row.StatusMessage)
	}
	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusJobID, "job", "", "import job id (required)")
	statusCmd.Flags().BoolVar(&statusErrors, "errors", false, "list per-row error messages")
	_ = statusCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(statusCmd)
}
