package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/importctl/internal/importer"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List import jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		jobs, err := importer.NewJobRegistry(pool).List(ctx)
		if err != nil {
			return err
		}

		for _, job := range jobs {
			table := job.Metadata.DataSource.TableName
			if table == "" {
				table = "(purged)"
			}
			fmt.Printf("%s\t%s\t%s\t%s\n",
				job.ID,
				job.Metadata.SubmittedValues["source"],
				table,
				job.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
