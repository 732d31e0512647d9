package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mache/internal/config"
	"github.com/agentic-research/mache/internal/sqlgen"
	"github.com/agentic-research/mache/internal/typescript"
)

var (
	tsPrint   bool
	tsSaveDir string
	tsValibot bool
)

var showSchemaCmd = &cobra.Command{
	Use:   "show-schema",
	Short: "Emit generated artifacts derived from the collection schema",
}

var showSchemaTypescriptCmd = &cobra.Command{
	Use:   "typescript",
	Short: "Emit per-table TypeScript types (and optional runtime validators)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfigPath(); err != nil {
			return err
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		files := typescript.FileMap(loaded.Schema, loaded.Collection.Table, tsValibot)

		if tsPrint || tsSaveDir == "" {
			for _, f := range files {
				fmt.Printf("// %s\n%s\n", f.Path, f.Contents)
			}
		}
		if tsSaveDir != "" {
			for _, f := range files {
				dest := filepath.Join(tsSaveDir, f.Path)
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return fmt.Errorf("show-schema typescript: %w", err)
				}
				if err := os.WriteFile(dest, []byte(f.Contents), 0o644); err != nil {
					return fmt.Errorf("show-schema typescript: %w", err)
				}
			}
		}
		return nil
	},
}

var (
	sqlUpsert       bool
	sqlCleanup      bool
	sqlFetchObjects bool
)

var showSchemaSQLCmd = &cobra.Command{
	Use:   "sql",
	Short: "Emit generated SQL; DDL is always printed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfigPath(); err != nil {
			return err
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		fmt.Print(sqlgen.DDL(loaded.Schema))
		if sqlUpsert {
			for _, stmt := range sqlgen.Upsert(loaded.Schema) {
				fmt.Println(stmt)
			}
		}
		if sqlCleanup {
			for _, stmt := range sqlgen.Cleanup(loaded.Schema) {
				fmt.Println(stmt)
			}
		}
		if sqlFetchObjects {
			fmt.Println(sqlgen.FetchObjects(loaded.Schema))
		}
		return nil
	},
}

func init() {
	showSchemaTypescriptCmd.Flags().BoolVar(&tsPrint, "print", false, "Print emitted files to stdout")
	showSchemaTypescriptCmd.Flags().StringVar(&tsSaveDir, "save", "", "Write emitted files under this directory")
	showSchemaTypescriptCmd.Flags().BoolVar(&tsValibot, "valibot", false, "Also emit a valibot runtime-validator module per table")

	showSchemaSQLCmd.Flags().BoolVar(&sqlUpsert, "upsert", false, "Also print the upsert statements")
	showSchemaSQLCmd.Flags().BoolVar(&sqlCleanup, "cleanup", false, "Also print the cleanup statements")
	showSchemaSQLCmd.Flags().BoolVar(&sqlFetchObjects, "fetch-objects", false, "Also print the fetch-objects query")

	showSchemaCmd.AddCommand(showSchemaTypescriptCmd)
	showSchemaCmd.AddCommand(showSchemaSQLCmd)
	rootCmd.AddCommand(showSchemaCmd)
}
