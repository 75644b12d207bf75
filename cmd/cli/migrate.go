package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/waitlist-landing/config"
	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/akeren/waitlist-landing/migrations"
	pkgmigrations "github.com/akeren/waitlist-landing/pkg/migrations"
	"github.com/akeren/waitlist-landing/pkg/utils"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), "up")
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), "down")
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), "version")
			},
		},
	)

	return cmd
}

func runMigration(parent context.Context, op string) error {
	db, closeDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	// The SQL files target postgres; sqlite deployments use the gorm schema instead.
	if config.DatabaseDriver() == config.DriverSQLite {
		if op != "up" {
			return fmt.Errorf("migrate %s is only supported on postgres", op)
		}
		return config.AutoMigrate(logger, db, models.ModelRegistry...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}

	cfg := pkgmigrations.Config{FS: migrations.FS, Logger: logger}
	if dir := utils.GetEnvTrimmed("MIGRATIONS_DIR"); dir != "" {
		cfg = pkgmigrations.Config{Dir: dir, Logger: logger}
	}

	ctx, cancel := context.WithTimeout(parent, 5*time.Minute)
	defer cancel()

	switch op {
	case "up":
		if err := pkgmigrations.Up(ctx, sqlDB, cfg); err != nil {
			return err
		}
	case "down":
		if err := pkgmigrations.Down(ctx, sqlDB, cfg); err != nil {
			return err
		}
	case "version":
		version, dirty, err := pkgmigrations.Version(ctx, sqlDB, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}

	logger.Info("Database migrations completed", "op", op)
	return nil
}
