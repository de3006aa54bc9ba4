// Package migrations embeds the schema migrations and applies them
// through golang-migrate for either supported database driver.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	pkgdb "github.com/JaimeStill/concierge/pkg/database"
)

//go:embed sql/*.sql
var files embed.FS

// New returns a migrator bound to db. Closing the migrator closes db.
func New(db *sql.DB, driver string) (*migrate.Migrate, error) {
	source, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	target, err := instance(db, driver)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations. The migrator is not closed so db stays usable.
func Up(db *sql.DB, driver string) error {
	m, err := New(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func instance(db *sql.DB, driver string) (database.Driver, error) {
	switch driver {
	case pkgdb.DriverPostgres:
		d, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("postgres migration driver: %w", err)
		}
		return d, nil
	case pkgdb.DriverSQLite:
		d, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("sqlite migration driver: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
