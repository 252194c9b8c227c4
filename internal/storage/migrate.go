package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	applog "fintrack/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion is the migration the embedded schema ends at.
const SchemaVersion uint = 1

// ErrDirtySchema means an earlier migration stopped halfway and the database
// needs manual repair.
var ErrDirtySchema = errors.New("schema is dirty")

// RunMigrations brings the ledger schema at dbPath up to SchemaVersion and
// returns the version it found before migrating (0 for a new database).
func RunMigrations(dbPath string, logger *applog.Logger) (uint, error) {
	if logger == nil {
		logger = applog.Discard()
	}

	// The migrate driver closes its connection, so it gets its own.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return from, fmt.Errorf("version %d: %w", from, ErrDirtySchema)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return from, fmt.Errorf("migrate up from version %d: %w", from, err)
	}
	if from != SchemaVersion {
		logger.Info("Ledger schema migrated", "from_version", from, "to_version", SchemaVersion, "db_path", dbPath)
	}
	return from, nil
}
