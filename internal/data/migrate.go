package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations
type Migrator struct {
	m     *migrate.Migrate
	owned *sql.DB
}

// NewMigrator builds a migrator for db. Postgres migrations run on their own
// connection pool; sqlite runs on db itself so :memory: databases see the schema.
func NewMigrator(db *DB) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+db.Driver)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	var (
		drv   database.Driver
		owned *sql.DB
	)
	switch db.Driver {
	case DriverSQLite:
		drv, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	case DriverPostgres:
		owned, err = sql.Open("pgx", db.DSN)
		if err != nil {
			return nil, fmt.Errorf("open migration connection: %w", err)
		}
		drv, err = postgres.WithInstance(owned, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Driver, drv)
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{m: m, owned: owned}, nil
}

// Up applies all pending migrations
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back steps migrations
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the migrator. The shared sqlite handle stays open.
func (mg *Migrator) Close() error {
	if mg.owned == nil {
		return nil
	}
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// Migrate applies all pending migrations to db
func Migrate(db *DB) error {
	mg, err := NewMigrator(db)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
