package dedup

import (
	"sync"
	"time"
)

// Defaults for guard construction.
const (
	// DefaultWindow is how long an event identity suppresses duplicates.
	DefaultWindow = 3 * time.Second

	// DefaultMaxEntries bounds guard memory. At typical event rates this
	// is far more than one window ever holds.
	DefaultMaxEntries = 10000
)

// Guard provides idempotent event admission.
//
// The first call for a given identity within the window admits the event;
// subsequent calls are rejected until the window expires. The check and
// record happen atomically under one lock so two goroutines racing on the
// same identity cannot both be admitted.
//
// The guard is advisory: identities falling on opposite sides of a bucket
// boundary may both be admitted. Downstream consumers tolerate the
// occasional double command.
type Guard struct {
	mu         sync.Mutex
	seen       map[string]time.Time
	window     time.Duration
	maxEntries int
}

// NewGuard creates a guard with the given suppression window and entry
// bound. Non-positive arguments fall back to the defaults.
func NewGuard(window time.Duration, maxEntries int) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Guard{
		seen:       make(map[string]time.Time),
		window:     window,
		maxEntries: maxEntries,
	}
}

// Window returns the configured suppression window.
func (g *Guard) Window() time.Duration {
	return g.window
}

// ShouldProcess reports whether the event identity should be processed.
//
// Returns true and records the identity if it has not been seen within
// the window. Returns false for duplicates. Expired entries are pruned
// lazily on each call; if the map is still full after pruning, the oldest
// entries are evicted to stay within the bound.
func (g *Guard) ShouldProcess(eventID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(now)

	if seenAt, ok := g.seen[eventID]; ok {
		if now.Sub(seenAt) < g.window {
			return false
		}
	}

	if len(g.seen) >= g.maxEntries {
		g.evictOldestLocked(len(g.seen) - g.maxEntries + 1)
	}

	g.seen[eventID] = now
	return true
}

// Len returns the number of tracked identities.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// pruneLocked removes entries older than the window. Caller holds mu.
func (g *Guard) pruneLocked(now time.Time) {
	for id, seenAt := range g.seen {
		if now.Sub(seenAt) >= g.window {
			delete(g.seen, id)
		}
	}
}

// evictOldestLocked removes the n oldest entries. Caller holds mu.
// Linear scans are fine at the configured bound; eviction only happens
// when a full window holds more events than maxEntries.
func (g *Guard) evictOldestLocked(n int) {
	for ; n > 0 && len(g.seen) > 0; n-- {
		var (
			oldestID string
			oldestAt time.Time
			first    = true
		)
		for id, seenAt := range g.seen {
			if first || seenAt.Before(oldestAt) {
				oldestID = id
				oldestAt = seenAt
				first = false
			}
		}
		delete(g.seen, oldestID)
	}
}
