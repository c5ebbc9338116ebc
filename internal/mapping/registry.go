package mapping

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencasa/casa-core/internal/event"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides mapping management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache so match resolution
// never touches the database on the event hot path.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Mapping // Cached mappings by ID
	cacheMu sync.RWMutex        // Protects cache
	logger  Logger
}

// NewRegistry creates a new mapping registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Mapping),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all mappings from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	mappings, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading mappings: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Mapping, len(mappings))
	for i := range mappings {
		m := mappings[i]
		r.cache[m.ID] = m.DeepCopy()
	}

	r.logger.Info("mapping cache refreshed", "count", len(mappings))
	return nil
}

// GetMapping retrieves a mapping by ID.
// Returns ErrMappingNotFound if the mapping does not exist.
// The returned mapping is a deep copy; callers can safely modify it.
func (r *Registry) GetMapping(ctx context.Context, id string) (*Mapping, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new mapping not yet cached)
	m, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	return m, nil
}

// ListMappings retrieves all mappings.
// The returned mappings are deep copies; callers can safely modify them.
func (r *Registry) ListMappings(ctx context.Context) ([]Mapping, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		mappings := make([]Mapping, 0, len(r.cache))
		for _, m := range r.cache {
			mappings = append(mappings, *m.DeepCopy())
		}
		return mappings, nil
	}

	return r.repo.List(ctx)
}

// CreateMapping validates and persists a new mapping.
// An ID is generated if not provided; Action defaults to "press".
func (r *Registry) CreateMapping(ctx context.Context, m *Mapping) error {
	if m.ID == "" {
		m.ID = GenerateID()
	}
	if m.Action == "" {
		m.Action = string(event.ActionPress)
	}

	if err := ValidateMapping(m); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, m); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("mapping created",
		"id", m.ID,
		"device", m.Device,
		"button", m.Button,
		"target", m.TargetID,
	)
	return nil
}

// UpdateMapping validates and persists changes to an existing mapping.
func (r *Registry) UpdateMapping(ctx context.Context, m *Mapping) error {
	if err := ValidateMapping(m); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, m); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[m.ID] = m.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("mapping updated", "id", m.ID)
	return nil
}

// DeleteMapping removes a mapping.
func (r *Registry) DeleteMapping(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("mapping deleted", "id", id)
	return nil
}

// FindMatches resolves every enabled mapping covering the event
// coordinates, in dispatch order. Resolution is served entirely from
// the cache; see FindMatches in matcher.go for precedence rules.
func (r *Registry) FindMatches(device, button string, action event.Action) []Mapping {
	r.cacheMu.RLock()
	mappings := make([]Mapping, 0, len(r.cache))
	for _, m := range r.cache {
		mappings = append(mappings, *m)
	}
	r.cacheMu.RUnlock()

	matches := FindMatches(mappings, device, button, action)

	// Hand out copies so callers cannot reach into the cache.
	for i := range matches {
		matches[i] = *matches[i].DeepCopy()
	}
	return matches
}

// Count returns the number of cached mappings.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
