package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sessiongate/sessiongate/credstore/postgres"
	"github.com/spf13/cobra"
)

type migrateFlags struct {
	databaseURL     string
	migrationsTable string
}

func newMigrateCommand() *cobra.Command {
	var flags migrateFlags

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the credential database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	migrateCmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", "", "PostgreSQL URL. Env: SESSIONGATE_DATABASE_URL.")
	migrateCmd.PersistentFlags().StringVar(&flags.migrationsTable, "migrations-table", "", "Version table name. Env: SESSIONGATE_MIGRATIONS_TABLE.")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [steps]",
		Short: "Apply pending migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, hasSteps, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if hasSteps {
				err = runner.Steps(steps)
			} else {
				err = runner.Up()
			}
			if isNoChangeBoundaryError(err) {
				cmd.Println("No schema changes to apply.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			cmd.Println("Schema is up to date.")
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back migrations by step count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, err := parseMigrationStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if err := runner.Steps(-steps); err != nil {
				if isNoChangeBoundaryError(err) {
					cmd.Println("No schema changes to roll back.")
					return nil
				}
				return fmt.Errorf("roll back migrations: %w", err)
			}
			cmd.Printf("Rolled back %d migration step(s).\n", steps)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Force-set the migration version (-1 for none)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersionArg(args[0])
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if err := runner.Force(version); err != nil {
				return fmt.Errorf("force migration version: %w", err)
			}
			cmd.Printf("Forced migration version to %d.\n", version)
			return nil
		},
	})

	return migrateCmd
}

func newMigrationRunner(ctx context.Context, flags migrateFlags) (*migrate.Migrate, error) {
	cfg, err := loadDBConfig()
	if err != nil {
		return nil, err
	}
	databaseURL, err := resolveDatabaseURL(flags.databaseURL, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	table := cfg.MigrationsTable
	if v := strings.TrimSpace(flags.migrationsTable); v != "" {
		table = v
	}

	db, err := openDatabase(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	runner, err := postgres.NewMigrator(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return runner, nil
}

func closeMigrationRunner(cmd *cobra.Command, runner *migrate.Migrate) {
	sourceErr, databaseErr := runner.Close()
	if err := errors.Join(sourceErr, databaseErr); err != nil {
		cmd.PrintErrf("warning: failed to close migration runner cleanly: %v\n", err)
	}
}

func parseMigrationStepsArg(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || steps <= 0 {
		return 0, false, fmt.Errorf("invalid migration steps %q: expected a positive integer", args[0])
	}
	return steps, true, nil
}

func parseForceVersionArg(arg string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || version < -1 {
		return 0, fmt.Errorf("invalid force version %q: expected an integer >= -1", arg)
	}
	return version, nil
}

func isNoChangeBoundaryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return true
	}
	// Steps past the first or last migration report a bare os.ErrNotExist.
	return errors.Is(err, os.ErrNotExist)
}
