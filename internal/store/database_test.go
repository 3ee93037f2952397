package store

import (
	"database/sql"
	"log"

	_ "modernc.org/sqlite"
)

// openTestDB returns a migrated in-memory database. A single connection keeps
// every query on the same in-memory instance.
func openTestDB() *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatal(err)
	}
	if err := RunMigrations(db); err != nil {
		log.Fatal(err)
	}
	return db
}
