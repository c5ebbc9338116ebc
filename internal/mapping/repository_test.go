package mapping

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the mappings table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE mappings (
			id TEXT PRIMARY KEY,
			device TEXT NOT NULL,
			button TEXT NOT NULL,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			command TEXT NOT NULL,
			parameters TEXT NOT NULL DEFAULT '{}',
			priority INTEGER NOT NULL DEFAULT 100,
			enabled INTEGER NOT NULL DEFAULT 1,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testStoredMapping creates a mapping for persistence tests.
func testStoredMapping(id string) *Mapping {
	return &Mapping{
		ID:          id,
		Device:      "Base_D",
		Button:      "S1",
		Action:      "press",
		TargetType:  TargetLight,
		TargetID:    "L_Cozinha",
		Command:     "toggle",
		Parameters:  Params{"brightness": float64(80), "fade": true},
		Priority:    100,
		Enabled:     true,
		Description: "kitchen toggle",
	}
}

// TestRepositoryCreate verifies insertion and duplicate detection.
func TestRepositoryCreate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	m := testStoredMapping("map-1")
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() {
		t.Error("timestamps not assigned on create")
	}

	// Duplicate ID
	if err := repo.Create(ctx, testStoredMapping("map-1")); !errors.Is(err, ErrMappingExists) {
		t.Errorf("Create() duplicate error = %v, want ErrMappingExists", err)
	}
}

// TestRepositoryGetByID verifies retrieval round-trips all fields.
func TestRepositoryGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	created := testStoredMapping("map-1")
	if err := repo.Create(ctx, created); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "map-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Device != "Base_D" || got.Button != "S1" || got.Action != "press" {
		t.Errorf("source = %s/%s/%s, want Base_D/S1/press", got.Device, got.Button, got.Action)
	}
	if got.TargetType != TargetLight || got.TargetID != "L_Cozinha" || got.Command != "toggle" {
		t.Errorf("target = %s/%s/%s, want light/L_Cozinha/toggle", got.TargetType, got.TargetID, got.Command)
	}
	if got.Parameters["brightness"] != float64(80) {
		t.Errorf("Parameters[brightness] = %v, want 80", got.Parameters["brightness"])
	}
	if got.Parameters["fade"] != true {
		t.Errorf("Parameters[fade] = %v, want true", got.Parameters["fade"])
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}

	// Missing mapping
	if _, err := repo.GetByID(ctx, "map-missing"); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("GetByID() missing error = %v, want ErrMappingNotFound", err)
	}
}

// TestRepositoryList verifies listing in priority order.
func TestRepositoryList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	low := testStoredMapping("map-low")
	low.Priority = 10
	high := testStoredMapping("map-high")
	high.Priority = 200

	for _, m := range []*Mapping{high, low} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create(%s) error = %v", m.ID, err)
		}
	}

	mappings, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("len = %d, want 2", len(mappings))
	}
	if mappings[0].ID != "map-low" {
		t.Errorf("first = %q, want map-low (lowest priority first)", mappings[0].ID)
	}
}

// TestRepositoryUpdate verifies modification and missing-row handling.
func TestRepositoryUpdate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	m := testStoredMapping("map-1")
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.Command = "on"
	m.Enabled = false
	if err := repo.Update(ctx, m); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "map-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Command != "on" {
		t.Errorf("Command = %q, want on", got.Command)
	}
	if got.Enabled {
		t.Error("Enabled = true after disable")
	}

	missing := testStoredMapping("map-missing")
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("Update() missing error = %v, want ErrMappingNotFound", err)
	}
}

// TestRepositoryDelete verifies removal and missing-row handling.
func TestRepositoryDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testStoredMapping("map-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, "map-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "map-1"); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrMappingNotFound", err)
	}

	if err := repo.Delete(ctx, "map-1"); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrMappingNotFound", err)
	}
}
