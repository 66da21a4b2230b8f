package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB returns a migrated database private to tb. It lives in a file so
// that every pooled connection sees the same rows.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "sessions.sqlite3")
	database, err := Open(path)
	if err != nil {
		tb.Fatalf("open %s: %v", path, err)
	}
	tb.Cleanup(func() {
		if err := database.Close(); err != nil {
			tb.Errorf("close test database: %v", err)
		}
	})

	if err := EnsureSchema(database); err != nil {
		tb.Fatalf("migrate test database: %v", err)
	}
	return database
}
