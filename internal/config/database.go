// internal/config/database.go
package config

import (
	"fmt"
)

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// UsesDatabase reports whether state is kept in PostgreSQL rather than in memory.
func (d *DatabaseConfig) UsesDatabase() bool {
	return d.Driver == "postgres"
}
