// Package postgres registers the PostgreSQL dialector with the GORM adapter.
// Import it for side effects.
package postgres

import (
	"fmt"

	dbconfig "github.com/tigerroll/helios/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Type is the database type handled by this package.
const Type = "postgres"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the key/value DSN expected by gorm.io/driver/postgres.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}
