// Package mysql registers the MySQL dialector with the GORM adapter.
// Import it for side effects.
package mysql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	dbconfig "github.com/tigerroll/helios/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/helios/pkg/batch/adapter/database/gorm"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Type is the database type handled by this package.
const Type = "mysql"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString formats the DSN with the driver's own formatter so that
// credentials containing reserved characters are escaped correctly.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}
