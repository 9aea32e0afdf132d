package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/pitbot/pkg/db/migrations"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command and its subcommands
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the ledger schema",
	}

	cmd.AddCommand(newMigrateUpCommand(rootOpts))
	cmd.AddCommand(newMigrateCreateCommand())

	return cmd
}

func newMigrateUpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, dialect, err := openSchemaDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator, err := migrations.NewMigrator(db, dialect)
			if err != nil {
				return err
			}
			count, err := migrator.WithLogger(opts.Logger.With("migrations")).MigrateUp()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Applied %d migration(s)\n", count)
			return nil
		},
	}
}

func newMigrateCreateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "create DESCRIPTION",
		Short: "Create a new, empty numbered migration file",
		Long: `Create a new, empty numbered migration file.

Example:
  pitdata migrate create "add roll notes" --dir pkg/db/migrations/postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrations.CreateMigration(dir, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", filepath.Join("pkg", "db", "migrations", string(migrations.SQLite)), "directory holding the migrations")

	return cmd
}

// openSchemaDB opens a plain handle on the configured backend so migrations run on their own
func openSchemaDB(opts *RootOptions) (*sql.DB, migrations.Dialect, error) {
	cfg := opts.Config

	switch cfg.Backend {
	case ledger.BackendSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, "", fmt.Errorf("create database directory: %w", err)
		}
		db, err := sql.Open(cfg.SQLiteDriver, cfg.SQLitePath)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		return db, migrations.SQLite, nil
	case ledger.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return db, migrations.Postgres, nil
	default:
		return nil, "", fmt.Errorf("backend %q has no schema to migrate", cfg.Backend)
	}
}
