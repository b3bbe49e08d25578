package turso_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/emiliopalmerini/mlab/internal/adapters/turso"
	"github.com/emiliopalmerini/mlab/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := turso.NewDB(ctx, turso.Config{URL: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}
