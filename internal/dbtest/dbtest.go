// Package dbtest opens migrated SQLite databases for store tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/concierge/internal/migrations"
	"github.com/JaimeStill/concierge/pkg/database"
)

// Open returns a migrated SQLite database in a per-test temp directory.
// The database is closed when the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "concierge_test.db"),
	}

	db, err := sql.Open("sqlite", cfg.Dsn())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}
