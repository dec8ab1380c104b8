package db

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
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator returns a migrate instance and a release func the caller must
// run when done. Postgres migrations run on a pool of their own, because the
// postgres driver pins a connection until Close and Close also closes the
// pool it was given. sqlite keeps the client's single connection so that
// ":memory:" databases see the schema.
func newMigrator(c *SQLClient) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	var (
		driver database.Driver
		owned  *sql.DB
	)
	switch c.driver {
	case DriverPostgres:
		owned, err = sql.Open(DriverPostgres, c.dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open migration db: %w", err)
		}
		driver, err = postgres.WithInstance(owned, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(c.db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", c.driver)
	}
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, nil, fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, c.driver, driver)
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, nil, fmt.Errorf("failed to init migrator: %w", err)
	}

	release := func() {}
	if owned != nil {
		release = func() { m.Close() }
	}
	return m, release, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(c *SQLClient) error {
	m, release, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(c *SQLClient) error {
	m, release, err := newMigrator(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}
