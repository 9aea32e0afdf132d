package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Dialect selects the bundled schema and placeholder style
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Placeholder returns the n-th (1-based) bind parameter for the dialect
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Migrator handles database migrations
type Migrator struct {
	db      *sql.DB
	source  fs.FS
	dialect Dialect
	logger  *logging.Logger
}

// NewMigrator creates a migrator over the schema bundled for dialect
func NewMigrator(db *sql.DB, dialect Dialect) (*Migrator, error) {
	sub, err := fs.Sub(embedded, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("no bundled migrations for %s: %w", dialect, err)
	}
	return NewMigratorFS(db, sub, dialect), nil
}

// NewMigratorFS creates a migrator reading *.sql files from the root of source
func NewMigratorFS(db *sql.DB, source fs.FS, dialect Dialect) *Migrator {
	return &Migrator{
		db:      db,
		source:  source,
		dialect: dialect,
		logger:  logging.Default.With("migrations"),
	}
}

// WithLogger replaces the migrator's logger
func (m *Migrator) WithLogger(logger *logging.Logger) *Migrator {
	m.logger = logger
	return m
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// GetAppliedMigrations returns a map of already applied migrations
func (m *Migrator) GetAppliedMigrations() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// LoadMigrations loads all migration files, ordered by version
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	return loadMigrations(m.source)
}

func loadMigrations(source fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(source, entry.Name())
		if err != nil {
			return nil, err
		}

		// 001_create_ledger.sql -> version 001, description "create ledger"
		parts := strings.SplitN(strings.TrimSuffix(path.Base(entry.Name()), ".sql"), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}

		migrations = append(migrations, Migration{
			Version:     parts[0],
			Description: strings.ReplaceAll(parts[1], "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ApplyMigration applies a single migration inside a transaction
func (m *Migrator) ApplyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("error applying migration %s: %w", migration.Version, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO schema_migrations (version, description) VALUES (%s, %s)",
		m.dialect.Placeholder(1), m.dialect.Placeholder(2),
	)
	if _, err := tx.Exec(insert, migration.Version, migration.Description); err != nil {
		tx.Rollback()
		return fmt.Errorf("error recording migration %s: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies all pending migrations and returns how many ran
func (m *Migrator) MigrateUp() (int, error) {
	if err := m.Initialize(); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return 0, err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, migration := range migrations {
		if applied[migration.Version] {
			m.logger.Debug("Migration %s already applied, skipping", migration.Version)
			continue
		}

		m.logger.Info("Applying migration %s: %s", migration.Version, migration.Description)
		if err := m.ApplyMigration(migration); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// CreateMigration writes an empty, correctly numbered migration file into dir
func CreateMigration(dir, description string, now time.Time) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", errors.New("migration description is required")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	migrations, err := loadMigrations(os.DirFS(dir))
	if err != nil {
		return "", err
	}

	next := 1
	for _, migration := range migrations {
		var version int
		if _, err := fmt.Sscanf(migration.Version, "%d", &version); err == nil && version >= next {
			next = version + 1
		}
	}

	fileName := fmt.Sprintf("%03d_%s.sql", next, strings.ReplaceAll(strings.TrimSpace(description), " ", "_"))
	filePath := filepath.Join(dir, fileName)

	content := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n", description, now.Format(time.RFC3339))
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", err
	}

	return filePath, nil
}
