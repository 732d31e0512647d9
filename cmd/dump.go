package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mache/internal/config"
	"github.com/agentic-research/mache/internal/localstore"
	"github.com/agentic-research/mache/internal/sqlgen"
)

var (
	dumpStorage string
	dumpDB      string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Reset tables then batch against a local-file database and storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfigPath(); err != nil {
			return err
		}
		if dumpStorage == "" || dumpDB == "" {
			return fmt.Errorf("dump: --storage and --db are required")
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(dumpStorage, 0o755); err != nil {
			return fmt.Errorf("dump: %w", err)
		}

		db, err := localstore.OpenSqlite(dumpDB)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		ctx := cmd.Context()
		for _, stmt := range sqlgen.DropAll(loaded.Schema) {
			if err := db.Exec(ctx, stmt); err != nil {
				_ = db.Close()
				return fmt.Errorf("dump: reset tables: %w", err)
			}
		}
		if err := db.Close(); err != nil {
			return fmt.Errorf("dump: %w", err)
		}

		return runBatch(ctx, dumpDB, dumpStorage, true)
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpStorage, "storage", "", "Local directory to use as the object/kv/asset store")
	dumpCmd.Flags().StringVar(&dumpDB, "db", "", "Local SQLite database file")
	rootCmd.AddCommand(dumpCmd)
}
