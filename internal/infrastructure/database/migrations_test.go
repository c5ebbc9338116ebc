package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// swapMigrations points the package at the given filesystem for one
// test and restores the real migrations afterwards.
func swapMigrations(t *testing.T, fsys embed.FS, dir string) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS, MigrationsDir = fsys, dir
}

func migrationTestDB(t *testing.T) (*DB, context.Context) {
	t.Helper()

	swapMigrations(t, testMigrationsFS, "testdata")
	db := openAt(t, t.TempDir()+"/casa.db")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return db, ctx
}

func tableExists(ctx context.Context, t *testing.T, db *DB, table string) bool {
	t.Helper()

	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n > 0
}

func TestMigrateLifecycle(t *testing.T) {
	db, ctx := migrationTestDB(t)

	// Before: one pending, none applied.
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Fatalf("status before = %d applied, %d pending; want 0/1", len(applied), len(pending))
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(ctx, t, db, "test_rooms") {
		t.Fatal("test_rooms not created")
	}

	applied, pending, err = db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("status after = %d applied, %d pending; want 1/0", len(applied), len(pending))
	}

	// Re-running applies nothing.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db, ctx := migrationTestDB(t)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(ctx, t, db, "test_rooms") {
		t.Error("test_rooms should have been dropped")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied after rollback = %d, want 0", len(applied))
	}
}

func TestMigrateEmptyFS(t *testing.T) {
	var empty embed.FS
	swapMigrations(t, empty, ".")

	db := openAt(t, t.TempDir()+"/casa.db")

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOk      bool
	}{
		{"20260118_120000_create_mappings.up.sql", "20260118_120000", "create_mappings", true, true},
		{"20260118_120000_create_mappings.down.sql", "20260118_120000", "create_mappings", false, true},
		{"readme.md", "", "", false, false},
		{"20260118_120000_create_mappings.sql", "", "", false, false},
		{"20260118.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parsed (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
