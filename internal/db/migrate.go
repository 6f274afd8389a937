package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/farxc/presupuestos-estudio/internal/logger"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies the embedded schema for the pool's driver. The remote
// procedures are owned by the hosted store and are not part of it.
//
// The migrate instance is not closed: closing it would close db.
func Migrate(db *sqlx.DB, log *logger.Logger) error {
	const component = "Migrations"

	driver := db.DriverName()

	var (
		instance database.Driver
		err      error
	)
	switch driver {
	case DriverPostgres:
		instance, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		instance, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, instance)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	log.Info(component, "Applying database migrations: driver=%s", driver)
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info(component, "No new database migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Info(component, "Database migrations applied successfully")
	return nil
}
