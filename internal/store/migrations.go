package store

import (
	"database/sql"

	assets "github.com/haatos/simple-release"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(assets.MigrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}
