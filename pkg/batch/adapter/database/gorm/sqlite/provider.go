// Package sqlite registers the SQLite dialector with the GORM adapter.
// Import it for side effects.
package sqlite

import (
	"errors"

	dbconfig "github.com/tigerroll/helios/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Type is the database type handled by this package.
const Type = "sqlite"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the SQLite DSN, which is the database file path
// (":memory:" for an in-memory database).
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}
