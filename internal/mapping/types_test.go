package mapping

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestParamsUnmarshal verifies the typed parameter bag decoding.
func TestParamsUnmarshal(t *testing.T) {
	t.Run("scalars accepted", func(t *testing.T) {
		var p Params
		if err := json.Unmarshal([]byte(`{"brightness":80,"mode":"slow","fade":true}`), &p); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if p["brightness"] != float64(80) {
			t.Errorf("brightness = %v, want 80", p["brightness"])
		}
		if p["mode"] != "slow" {
			t.Errorf("mode = %v, want slow", p["mode"])
		}
		if p["fade"] != true {
			t.Errorf("fade = %v, want true", p["fade"])
		}
	})

	t.Run("nested object rejected", func(t *testing.T) {
		var p Params
		err := json.Unmarshal([]byte(`{"nested":{"a":1}}`), &p)
		if !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("Unmarshal() error = %v, want ErrInvalidMapping", err)
		}
	})

	t.Run("array rejected", func(t *testing.T) {
		var p Params
		err := json.Unmarshal([]byte(`{"list":[1,2]}`), &p)
		if !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("Unmarshal() error = %v, want ErrInvalidMapping", err)
		}
	})

	t.Run("null value rejected", func(t *testing.T) {
		var p Params
		err := json.Unmarshal([]byte(`{"gone":null}`), &p)
		if !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("Unmarshal() error = %v, want ErrInvalidMapping", err)
		}
	})
}

// TestParamsMerge verifies override semantics without mutation.
func TestParamsMerge(t *testing.T) {
	base := Params{"brightness": float64(80), "fade": true}
	override := Params{"brightness": float64(50), "mode": "fast"}

	merged := base.Merge(override)

	if merged["brightness"] != float64(50) {
		t.Errorf("brightness = %v, want override 50", merged["brightness"])
	}
	if merged["fade"] != true {
		t.Errorf("fade = %v, want base true", merged["fade"])
	}
	if merged["mode"] != "fast" {
		t.Errorf("mode = %v, want fast", merged["mode"])
	}

	// Inputs untouched
	if base["brightness"] != float64(80) {
		t.Error("Merge() mutated the base bag")
	}
}

// TestMappingDeepCopy verifies copies are fully independent.
func TestMappingDeepCopy(t *testing.T) {
	m := testMapping("map-1", "Base_D", "S1", "press", 100)
	m.Parameters = Params{"brightness": float64(80)}

	cp := m.DeepCopy()
	cp.Parameters["brightness"] = float64(10)
	cp.Device = "Base_A"

	if m.Parameters["brightness"] != float64(80) {
		t.Error("DeepCopy() shares the parameter bag")
	}
	if m.Device != "Base_D" {
		t.Error("DeepCopy() shares scalar fields")
	}
}

// TestTargetTypeValid verifies the target type enum.
func TestTargetTypeValid(t *testing.T) {
	for _, tt := range []TargetType{TargetLight, TargetScene, TargetGate, TargetNotification} {
		if !tt.Valid() {
			t.Errorf("TargetType %q reported invalid", tt)
		}
	}
	if TargetType("toaster").Valid() {
		t.Error("TargetType \"toaster\" reported valid")
	}
}
