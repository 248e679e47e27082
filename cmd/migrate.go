package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/collections"
	"github.com/sells-group/importctl/internal/importer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the job registry and collection tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := importer.NewJobRegistry(pool).Migrate(ctx); err != nil {
			return err
		}
		for _, kind := range []collections.Kind{collections.KindGroup, collections.KindTag} {
			if err := collections.NewPostgresService(pool, kind).Migrate(ctx); err != nil {
				return err
			}
		}

		zap.L().Info("migration complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
