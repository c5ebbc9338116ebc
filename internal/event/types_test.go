package event

import (
	"testing"
	"time"
)

// TestEventID verifies the dedup identity derivation.
func TestEventID(t *testing.T) {
	base := time.Date(2025, 12, 8, 11, 23, 0, 500_000_000, time.UTC)
	window := 3 * time.Second

	newEvent := func(at time.Time) *Event {
		return &Event{
			Device:     "Base_D",
			Button:     "S1",
			Action:     ActionPress,
			ReceivedAt: at,
		}
	}

	t.Run("deterministic within bucket", func(t *testing.T) {
		a := newEvent(base)
		b := newEvent(base.Add(time.Second))
		if a.ID(window) != b.ID(window) {
			t.Errorf("IDs differ within window: %q vs %q", a.ID(window), b.ID(window))
		}
	})

	t.Run("fresh identity after window", func(t *testing.T) {
		a := newEvent(base)
		b := newEvent(base.Add(window + time.Second))
		if a.ID(window) == b.ID(window) {
			t.Errorf("IDs identical across windows: %q", a.ID(window))
		}
	})

	t.Run("identity includes coordinates", func(t *testing.T) {
		a := newEvent(base)
		b := newEvent(base)
		b.Button = "S2"
		if a.ID(window) == b.ID(window) {
			t.Error("different buttons produced the same ID")
		}

		c := newEvent(base)
		c.Action = ActionRelease
		if a.ID(window) == c.ID(window) {
			t.Error("different actions produced the same ID")
		}
	})

	t.Run("zero window disables bucketing", func(t *testing.T) {
		a := newEvent(base)
		b := newEvent(base.Add(time.Millisecond))
		if a.ID(0) == b.ID(0) {
			t.Error("zero window should not collapse distinct times")
		}
	})
}

// TestActionValid verifies the action enum.
func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionPress, ActionRelease, ActionToggle, ActionStateReport} {
		if !a.Valid() {
			t.Errorf("Action %q reported invalid", a)
		}
	}
	if Action("wiggle").Valid() {
		t.Error("Action \"wiggle\" reported valid")
	}
}

// TestEventValidate verifies identity validation.
func TestEventValidate(t *testing.T) {
	valid := &Event{Device: "Base_D", Action: ActionPress}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	noDevice := &Event{Action: ActionPress}
	if err := noDevice.Validate(); err == nil {
		t.Error("Validate() accepted event without device")
	}

	badAction := &Event{Device: "Base_D", Action: "wiggle"}
	if err := badAction.Validate(); err == nil {
		t.Error("Validate() accepted invalid action")
	}
}
