package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/migrations"
	"github.com/gravadigital/campuscast-api/internal/storage/postgres"
)

func main() {
	if err := newRootCommand(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions holds global flags for all commands
type rootOptions struct {
	cfg      *config.Config
	logLevel string
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	opts := &rootOptions{cfg: cfg}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the CampusCast PostgreSQL schema",
		Long: `Manage the CampusCast PostgreSQL schema.

Connection settings come from the DB_* environment variables (or .env).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Initialize(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", cfg.Log.Level, "log level (debug|info|warn|error)")

	cmd.AddCommand(newUpCommand(opts))
	cmd.AddCommand(newRollbackCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))

	return cmd
}

func newUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(opts, func(db *gorm.DB) error {
				if err := migrations.RunMigrations(db); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migration process completed!")
				return nil
			})
		},
	}
}

func newRollbackCommand(opts *rootOptions) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return withDB(opts, func(db *gorm.DB) error {
				for i := 0; i < steps; i++ {
					if err := migrations.RollbackMigration(db); err != nil {
						return fmt.Errorf("migration rollback failed: %w", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	return cmd
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations that have not been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(opts, func(db *gorm.DB) error {
				pending, err := migrations.Pending(db)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
					return nil
				}
				for _, m := range pending {
					fmt.Fprintf(cmd.OutOrStdout(), "pending %s %s\n", m.ID, m.Name)
				}
				return nil
			})
		},
	}
}

func withDB(opts *rootOptions, fn func(db *gorm.DB) error) error {
	log := logger.Migration()

	db, err := postgres.Connect(opts.cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return err
	}
	defer postgres.Close(db)

	return fn(db)
}
