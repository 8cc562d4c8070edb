// Package main implements the proxydeck CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rkershaw/proxydeck/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "proxydeck",
	Short: "Management console for a reverse-proxy engine",
	Long: `proxydeck keeps a reverse-proxy engine's live configuration consistent
with a persistent store of proxy host definitions: domain routing, TLS
policy, and basic auth, pushed to the engine's admin API as atomic
full-configuration replaces.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
