package stats

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every embedded .sql file not yet recorded in
// schema_migrations, in name order, each in its own transaction.
func (d *DB) RunMigrations() error {
	if _, err := d.db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  name TEXT PRIMARY KEY,
  applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	for _, fname := range files {
		var exists int
		err := d.db.QueryRow(d.rebind(`SELECT 1 FROM schema_migrations WHERE name=? LIMIT 1`), fname).Scan(&exists)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", fname, err)
		}
		if exists == 1 {
			continue
		}

		data, err := migrationFiles.ReadFile("migrations/" + fname)
		if err != nil {
			return err
		}

		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", fname, err)
		}
		if _, err := tx.Exec(d.rebind(`INSERT INTO schema_migrations(name) VALUES(?)`), fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s failed: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s failed: %w", fname, err)
		}
		logf("applied migration %s", fname)
	}

	return nil
}
