package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/agentic-research/mache/internal/config"
	"github.com/agentic-research/mache/internal/executor"
	"github.com/agentic-research/mache/internal/highlight"
	"github.com/agentic-research/mache/internal/localstore"
	"github.com/agentic-research/mache/internal/record"
	"github.com/agentic-research/mache/internal/upload"
)

var batchForce bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the full sync against the configured local database and storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfigPath(); err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		defaultDir := filepath.Join(home, ".mache-cms")
		return runBatch(cmd.Context(), filepath.Join(defaultDir, "db.sqlite"), filepath.Join(defaultDir, "storage"), batchForce)
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "Upload every discovered blob, skipping the hash-presence filter")
	rootCmd.AddCommand(batchCmd)
}

// runBatch discovers every document matching the collection's glob,
// processes each into Tables via record.Processor, merges the results,
// and drives executor.Batch against a local SQLite database plus a
// go-billy-backed local filesystem for Kv/ObjectStore/Asset traffic.
func runBatch(ctx context.Context, dbPath, storageRoot string, force bool) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	paths, err := doublestar.FilepathGlob(loaded.Collection.Glob)
	if err != nil {
		return fmt.Errorf("batch: glob %q: %w", loaded.Collection.Glob, err)
	}

	collector := upload.NewCollector()
	processor := &record.Processor{
		Schema:      loaded.Schema,
		ConfigBytes: loaded.RawBytes,
		Collector:   collector,
		Highlighter: highlight.Default{},
	}

	tables := record.Tables{}
	for _, path := range paths {
		docTables, err := processor.ProcessDocument(ctx, path)
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		for table, rows := range docTables {
			tables[table] = append(tables[table], rows...)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	db, err := localstore.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	defer db.Close()

	exec := &executor.Executor{
		Schema:  loaded.Schema,
		Sqlite:  db,
		Objects: localstore.NewObjectStore(storageRoot),
		Kv:      localstore.NewKv(storageRoot),
		Assets:  localstore.NewAsset(storageRoot),
	}

	return exec.Batch(ctx, tables, collector, force)
}
