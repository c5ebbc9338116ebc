package mapping

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/opencasa/casa-core/internal/event"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu       sync.Mutex
	mappings map[string]*Mapping
	listErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{mappings: make(map[string]*Mapping)}
}

func (r *mockRepository) GetByID(_ context.Context, id string) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[id]
	if !ok {
		return nil, ErrMappingNotFound
	}
	return m.DeepCopy(), nil
}

func (r *mockRepository) List(_ context.Context) ([]Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Mapping
	for _, m := range r.mappings {
		out = append(out, *m.DeepCopy())
	}
	return out, nil
}

func (r *mockRepository) Create(_ context.Context, m *Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[m.ID]; ok {
		return ErrMappingExists
	}
	r.mappings[m.ID] = m.DeepCopy()
	return nil
}

func (r *mockRepository) Update(_ context.Context, m *Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[m.ID]; !ok {
		return ErrMappingNotFound
	}
	r.mappings[m.ID] = m.DeepCopy()
	return nil
}

func (r *mockRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[id]; !ok {
		return ErrMappingNotFound
	}
	delete(r.mappings, id)
	return nil
}

// TestRegistryRefreshCache verifies cache population from the repository.
func TestRegistryRefreshCache(t *testing.T) {
	repo := newMockRepository()
	m := testMapping("map-1", "Base_D", "S1", "press", 100)
	repo.mappings["map-1"] = &m

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

// TestRegistryCreateMapping verifies validation, defaults, and caching.
func TestRegistryCreateMapping(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()

	t.Run("generates id and defaults action", func(t *testing.T) {
		m := &Mapping{
			Device:     "Base_D",
			Button:     "S1",
			TargetType: TargetLight,
			TargetID:   "L_Cozinha",
			Command:    "toggle",
			Enabled:    true,
		}
		if err := reg.CreateMapping(ctx, m); err != nil {
			t.Fatalf("CreateMapping() error = %v", err)
		}
		if m.ID == "" {
			t.Error("ID not generated")
		}
		if m.Action != "press" {
			t.Errorf("Action = %q, want press default", m.Action)
		}
		if reg.Count() != 1 {
			t.Errorf("Count() = %d, want 1", reg.Count())
		}
	})

	t.Run("rejects invalid mapping", func(t *testing.T) {
		m := &Mapping{Device: "Base_D"} // missing almost everything
		if err := reg.CreateMapping(ctx, m); !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("CreateMapping() error = %v, want ErrInvalidMapping", err)
		}
	})
}

// TestRegistryFindMatches verifies cache-served match resolution.
func TestRegistryFindMatches(t *testing.T) {
	repo := newMockRepository()
	exact := testMapping("map-exact", "Base_D", "S1", "press", 100)
	wild := testMapping("map-wild", "*", "*", "*", 100)
	off := testMapping("map-off", "Base_D", "S1", "press", 1)
	off.Enabled = false
	for _, m := range []Mapping{exact, wild, off} {
		cp := m
		repo.mappings[m.ID] = &cp
	}

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	matches := reg.FindMatches("Base_D", "S1", event.ActionPress)
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].ID != "map-exact" {
		t.Errorf("first = %q, want map-exact", matches[0].ID)
	}

	// Returned mappings are copies; mutating them must not poison the cache.
	matches[0].TargetID = "tampered"
	again := reg.FindMatches("Base_D", "S1", event.ActionPress)
	if again[0].TargetID == "tampered" {
		t.Error("FindMatches() exposed cache internals")
	}
}

// TestRegistryUpdateDelete verifies cache consistency across CRUD.
func TestRegistryUpdateDelete(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()

	m := testMapping("map-1", "Base_D", "S1", "press", 100)
	if err := reg.CreateMapping(ctx, &m); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	m.Enabled = false
	if err := reg.UpdateMapping(ctx, &m); err != nil {
		t.Fatalf("UpdateMapping() error = %v", err)
	}
	if matches := reg.FindMatches("Base_D", "S1", event.ActionPress); len(matches) != 0 {
		t.Errorf("disabled mapping still matches: %v", matches)
	}

	if err := reg.DeleteMapping(ctx, "map-1"); err != nil {
		t.Fatalf("DeleteMapping() error = %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d after delete, want 0", reg.Count())
	}

	if err := reg.DeleteMapping(ctx, "map-1"); !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("DeleteMapping() missing error = %v, want ErrMappingNotFound", err)
	}
}

// TestRegistryGetMappingFallback verifies repository fallback on cache miss.
func TestRegistryGetMappingFallback(t *testing.T) {
	repo := newMockRepository()
	m := testMapping("map-1", "Base_D", "S1", "press", 100)
	repo.mappings["map-1"] = &m

	reg := NewRegistry(repo) // cache intentionally not refreshed

	got, err := reg.GetMapping(context.Background(), "map-1")
	if err != nil {
		t.Fatalf("GetMapping() error = %v", err)
	}
	if got.ID != "map-1" {
		t.Errorf("ID = %q, want map-1", got.ID)
	}

	// Second lookup is served from cache.
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1 after fallback caching", reg.Count())
	}
}
