package manifest

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbconfig "github.com/tigerroll/helios/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

//go:embed migrations
var migrationFS embed.FS

// MigrationsTable is the golang-migrate version table of the manifest schema.
const MigrationsTable = "helios_manifest_migrations"

func databaseDriver(db *sql.DB, dbType string) (database.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

// Migrate brings the manifest schema of the configured database up to date.
// It uses a connection of its own, closed on return, so an in-memory sqlite
// database cannot be migrated this way.
func Migrate(cfg dbconfig.DatabaseConfig) error {
	db, err := gormadapter.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open manifest database for migration: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations/"+cfg.Type)
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to open %s migrations: %w", cfg.Type, err)
	}
	driver, err := databaseDriver(sqlDB, cfg.Type)
	if err != nil {
		src.Close()
		sqlDB.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, cfg.Type, driver)
	if err != nil {
		src.Close()
		sqlDB.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Closes the source, the driver and sqlDB.
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("manifest migration failed (%s): %w", cfg.Type, err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read manifest schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("manifest schema version %d is dirty", version)
	}
	logger.Debugf("Manifest schema at version %d (%s).", version, cfg.Type)
	return nil
}
