package input

import "testing"

func TestGate_TogglesOnDesignatedKey(t *testing.T) {
	toggles := 0
	g := NewGate(" ", func() { toggles++ })

	if !g.HandleKey(" ", false) {
		t.Fatalf("expected key to be consumed")
	}
	if toggles != 1 {
		t.Errorf("expected 1 toggle, got %d", toggles)
	}
}

func TestGate_SuppressedWhileTextEntryFocused(t *testing.T) {
	toggles := 0
	g := NewGate(" ", func() { toggles++ })

	if g.HandleKey(" ", true) {
		t.Fatalf("expected key to be suppressed")
	}
	if toggles != 0 {
		t.Errorf("expected no toggle, got %d", toggles)
	}
}

func TestGate_IgnoresOtherKeys(t *testing.T) {
	toggles := 0
	g := NewGate(" ", func() { toggles++ })

	if g.HandleKey("Enter", false) {
		t.Fatalf("expected other keys to be ignored")
	}
	if toggles != 0 {
		t.Errorf("expected no toggle, got %d", toggles)
	}
}

func TestGate_KeyMatchIsCaseInsensitive(t *testing.T) {
	toggles := 0
	g := NewGate("p", func() { toggles++ })

	if !g.HandleKey("P", false) {
		t.Fatalf("expected case-insensitive match")
	}
	if toggles != 1 {
		t.Errorf("expected 1 toggle, got %d", toggles)
	}
}

func TestGate_EmptyKeyFallsBackToDefault(t *testing.T) {
	toggles := 0
	g := NewGate("", func() { toggles++ })

	if !g.HandleKey(DefaultToggleKey, false) {
		t.Fatalf("expected default key to fire")
	}
	if toggles != 1 {
		t.Errorf("expected 1 toggle, got %d", toggles)
	}
}
