// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/robalobadob/numguess/assets"
	"github.com/robalobadob/numguess/internal/database"
)

// New returns a migrated database in t's temp dir, closed on cleanup.
func New(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
