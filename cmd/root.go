package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/importctl/internal/config"
	"github.com/sells-group/importctl/internal/db"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "importctl",
	Short: "Bulk-data-import engine",
	Long:  "Stages spreadsheet or query rows into per-job tables, resolves column mappings, replays rows through entity parsers, and attaches imported records to groups and tags.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore connects to the configured database.
func initStore(ctx context.Context) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
