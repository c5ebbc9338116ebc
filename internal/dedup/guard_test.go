package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestShouldProcess verifies basic admit/reject behaviour.
func TestShouldProcess(t *testing.T) {
	g := NewGuard(3*time.Second, 100)
	now := time.Date(2025, 12, 8, 11, 23, 0, 0, time.UTC)

	if !g.ShouldProcess("Base_D_S1_press@100", now) {
		t.Fatal("first sighting rejected")
	}
	if g.ShouldProcess("Base_D_S1_press@100", now.Add(time.Second)) {
		t.Error("duplicate within window admitted")
	}
	if !g.ShouldProcess("Base_D_S2_press@100", now) {
		t.Error("distinct identity rejected")
	}
}

// TestWindowExpiry verifies identities are re-admitted after the window.
func TestWindowExpiry(t *testing.T) {
	g := NewGuard(3*time.Second, 100)
	now := time.Date(2025, 12, 8, 11, 23, 0, 0, time.UTC)

	if !g.ShouldProcess("Base_D_S1_press@100", now) {
		t.Fatal("first sighting rejected")
	}

	// Exactly at the window boundary the entry has expired.
	if !g.ShouldProcess("Base_D_S1_press@100", now.Add(3*time.Second)) {
		t.Error("identity not re-admitted at window boundary")
	}
}

// TestLazyPruning verifies expired entries are removed on access.
func TestLazyPruning(t *testing.T) {
	g := NewGuard(3*time.Second, 100)
	now := time.Date(2025, 12, 8, 11, 23, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		g.ShouldProcess(fmt.Sprintf("event-%d", i), now)
	}
	if g.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", g.Len())
	}

	// One call after the window expires everything stale.
	g.ShouldProcess("fresh", now.Add(5*time.Second))
	if g.Len() != 1 {
		t.Errorf("Len() = %d after pruning, want 1", g.Len())
	}
}

// TestMaxEntriesEviction verifies the guard stays bounded under burst load.
func TestMaxEntriesEviction(t *testing.T) {
	g := NewGuard(time.Minute, 5)
	now := time.Date(2025, 12, 8, 11, 23, 0, 0, time.UTC)

	// Fill to the bound with increasing timestamps.
	for i := 0; i < 5; i++ {
		g.ShouldProcess(fmt.Sprintf("event-%d", i), now.Add(time.Duration(i)*time.Millisecond))
	}
	if g.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", g.Len())
	}

	// One more evicts the oldest (event-0) and stays within the bound.
	if !g.ShouldProcess("event-5", now.Add(10*time.Millisecond)) {
		t.Fatal("new identity rejected at capacity")
	}
	if g.Len() != 5 {
		t.Errorf("Len() = %d after eviction, want 5", g.Len())
	}

	// The evicted identity is admitted again; a retained one is not.
	if !g.ShouldProcess("event-0", now.Add(11*time.Millisecond)) {
		t.Error("evicted identity still suppressed")
	}
	if g.ShouldProcess("event-4", now.Add(11*time.Millisecond)) {
		t.Error("retained identity admitted twice")
	}
}

// TestDefaults verifies fallback construction values.
func TestDefaults(t *testing.T) {
	g := NewGuard(0, 0)
	if g.Window() != DefaultWindow {
		t.Errorf("Window() = %v, want %v", g.Window(), DefaultWindow)
	}
	if g.maxEntries != DefaultMaxEntries {
		t.Errorf("maxEntries = %d, want %d", g.maxEntries, DefaultMaxEntries)
	}
}

// TestConcurrentAdmission verifies exactly one goroutine wins per identity.
func TestConcurrentAdmission(t *testing.T) {
	g := NewGuard(3*time.Second, 1000)
	now := time.Now()

	const goroutines = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldProcess("Base_D_S1_press@100", now) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("admitted = %d, want exactly 1", admitted)
	}
}
