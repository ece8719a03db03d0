package stats

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens the offline database file. ":memory:" works for tests.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: an in-memory database lives and dies with it
	db.SetMaxOpenConns(1)
	return newDB(db, "sqlite3")
}
