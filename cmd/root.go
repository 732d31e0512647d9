// Package cmd wires the CLI surface (show-schema, batch, dump, version)
// to the compiled pipeline, using package-level flag variables plus
// init()-time registration against a package-level rootCmd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "mache-cms",
	Short:   "Content-addressed static-content publishing engine",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the collection YAML config")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func requireConfigPath() error {
	if configPath == "" {
		return fmt.Errorf("-c/--config is required")
	}
	return nil
}
