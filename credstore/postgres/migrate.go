package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultMigrationsTable is the golang-migrate version table.
const DefaultMigrationsTable = "sessiongate_schema_migrations"

// NewMigrator returns a golang-migrate runner over the embedded schema files.
// Closing the runner closes db.
func NewMigrator(db *sql.DB, migrationsTable string) (*migrate.Migrate, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if migrationsTable == "" {
		migrationsTable = DefaultMigrationsTable
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("credstore/postgres: open embedded migrations: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("credstore/postgres: init migrate driver: %w", err)
	}
	runner, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("credstore/postgres: create migrate runner: %w", err)
	}
	return runner, nil
}

// Migrate applies every pending migration. A schema that is already current
// is not an error.
func Migrate(db *sql.DB) error {
	runner, err := NewMigrator(db, "")
	if err != nil {
		return err
	}
	if err := runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("credstore/postgres: apply migrations: %w", err)
	}
	return nil
}
