package input

import "strings"

// DefaultToggleKey is the key that toggles playback.
const DefaultToggleKey = " "

// Gate maps one designated key to a playback toggle. Key events arriving
// while focus is inside a text-entry control are suppressed, so typing a
// space into a filename field never starts the show.
type Gate struct {
	key    string
	toggle func()
}

// NewGate creates a gate for the given key (case-insensitive; empty falls
// back to DefaultToggleKey) invoking toggle when it fires.
func NewGate(key string, toggle func()) *Gate {
	if key == "" {
		key = DefaultToggleKey
	}
	return &Gate{key: key, toggle: toggle}
}

// HandleKey processes one key event and reports whether it was consumed.
// textEntryFocused suppresses the gate entirely.
func (g *Gate) HandleKey(key string, textEntryFocused bool) bool {
	if textEntryFocused {
		return false
	}
	if !strings.EqualFold(key, g.key) {
		return false
	}
	g.toggle()
	return true
}
