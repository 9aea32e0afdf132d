package migrations

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/suite"
	_ "modernc.org/sqlite"
)

type MigratorTestSuite struct {
	suite.Suite
	db *sql.DB
}

func TestMigratorSuite(t *testing.T) {
	suite.Run(t, new(MigratorTestSuite))
}

func (s *MigratorTestSuite) SetupTest() {
	db, err := sql.Open("sqlite", filepath.Join(s.T().TempDir(), "migrate.db"))
	s.Require().NoError(err)
	db.SetMaxOpenConns(1)
	s.db = db
}

func (s *MigratorTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *MigratorTestSuite) TestMigrateUpIsIdempotent() {
	migrator, err := NewMigrator(s.db, SQLite)
	s.Require().NoError(err)

	applied, err := migrator.MigrateUp()
	s.Require().NoError(err)
	s.Equal(2, applied)

	applied, err = migrator.MigrateUp()
	s.Require().NoError(err)
	s.Zero(applied, "second run should find nothing pending")

	versions, err := migrator.GetAppliedMigrations()
	s.Require().NoError(err)
	s.True(versions["001"])
	s.True(versions["002"])

	for _, table := range []string{"users", "rolls", "double_rolls"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		s.NoError(err, "table %s should exist", table)
	}
}

func (s *MigratorTestSuite) TestLoadMigrationsOrdersByVersion() {
	source := fstest.MapFS{
		"010_last.sql":       {Data: []byte("SELECT 1;")},
		"002_second_one.sql": {Data: []byte("SELECT 1;")},
		"001_first.sql":      {Data: []byte("SELECT 1;")},
		"README.md":          {Data: []byte("ignored")},
	}

	migrations, err := NewMigratorFS(s.db, source, SQLite).LoadMigrations()
	s.Require().NoError(err)
	s.Require().Len(migrations, 3)
	s.Equal("001", migrations[0].Version)
	s.Equal("second one", migrations[1].Description)
	s.Equal("010", migrations[2].Version)
}

func (s *MigratorTestSuite) TestLoadMigrationsRejectsBadName() {
	source := fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}}

	_, err := NewMigratorFS(s.db, source, SQLite).LoadMigrations()
	s.Error(err)
}

func (s *MigratorTestSuite) TestFailedMigrationIsNotRecorded() {
	source := fstest.MapFS{"001_broken.sql": {Data: []byte("CREATE TABLE (;")}}
	migrator := NewMigratorFS(s.db, source, SQLite)

	_, err := migrator.MigrateUp()
	s.Error(err)

	versions, err := migrator.GetAppliedMigrations()
	s.Require().NoError(err)
	s.Empty(versions)
}

func (s *MigratorTestSuite) TestCreateMigration() {
	dir := filepath.Join(s.T().TempDir(), "migrations")
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	first, err := CreateMigration(dir, "add streaks", now)
	s.Require().NoError(err)
	s.Equal("001_add_streaks.sql", filepath.Base(first))

	second, err := CreateMigration(dir, "add badges", now)
	s.Require().NoError(err)
	s.Equal("002_add_badges.sql", filepath.Base(second))

	content, err := os.ReadFile(second)
	s.Require().NoError(err)
	s.Contains(string(content), "-- Migration: add badges")
	s.Contains(string(content), "2024-03-01T10:00:00Z")

	_, err = CreateMigration(dir, "  ", now)
	s.Error(err)
}

func (s *MigratorTestSuite) TestPlaceholder() {
	s.Equal("?", SQLite.Placeholder(3))
	s.Equal("$3", Postgres.Placeholder(3))
}
