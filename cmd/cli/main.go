package main

import (
	"fmt"
	"os"

	"github.com/akeren/waitlist-landing/config"
	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var logger = log.NewLoggerWithJSONOutput()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Operational commands for the waitlist service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitializeEnvFile(logger) // Load envs early for CLI consistency
		},
	}

	root.AddCommand(
		newMigrateCmd(),
		newCleanupCmd(),
		newExportCmd(),
		newImportCmd(),
		newSubmitCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openDatabase() (*gorm.DB, func(), error) {
	db, err := config.NewDatabase(logger, &config.DBConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	closeFn := func() {
		config.CloseDatabase(db, logger)
	}

	return db, closeFn, nil
}
