package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/database"
	"github.com/nerrad567/cinnamon-core/migrations"
)

func migrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the database schema",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $CINNAMON_CONFIG or "+defaultConfigPath+")")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), getConfigPath(configPath), func(db *database.DB) error {
					return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), db)
				})
			},
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), getConfigPath(configPath), func(db *database.DB) error {
					if err := db.Migrate(cmd.Context(), migrations.FS, migrations.Dir); err != nil {
						return err
					}
					return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), db)
				})
			},
		},
		migrateDownCmd(&configPath),
	)
	return cmd
}

func migrateDownCmd(configPath *string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withDatabase(cmd.Context(), getConfigPath(*configPath), func(db *database.DB) error {
				for range steps {
					if err := db.MigrateDown(cmd.Context(), migrations.FS, migrations.Dir); err != nil {
						return err
					}
				}
				return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), db)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to revert")
	return cmd
}

func withDatabase(ctx context.Context, configPath string, fn func(*database.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-mostly command
	return fn(db)
}

func printMigrationStatus(ctx context.Context, w io.Writer, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
