package store

import (
	"database/sql"
	"runtime"

	"github.com/haatos/simple-release/internal/settings"
)

// InitDatabase opens the read-only pool (sized to the CPU count) or the single
// connection read-write pool.
func InitDatabase(s *settings.AppSettings, readonly bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.SQLiteDbString(readonly))
	if err != nil {
		return nil, err
	}

	if readonly {
		db.SetMaxOpenConns(max(4, runtime.NumCPU()))
		return db, nil
	}

	for _, pragma := range []string{
		"PRAGMA temp_store = memory",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
