package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var fs embed.FS

var dialects = map[string]goose.Dialect{
	"sqlite":   goose.DialectSQLite3,
	"postgres": goose.DialectPostgres,
}

// Run applies all pending migrations against db. driver is "sqlite" or
// "postgres"; the schema is portable, only goose's bookkeeping differs.
func Run(db *sql.DB, driver string) error {
	dialect, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migration dialect for driver %q", driver)
	}

	goose.SetBaseFS(fs)

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
