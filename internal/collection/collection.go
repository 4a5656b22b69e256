package collection

import (
	"log/slog"
	"sync"

	"github.com/jo-hoe/goslide/internal/resource"
	"github.com/jo-hoe/goslide/internal/session"
)

// DefaultMaxImages bounds the collection size.
const DefaultMaxImages = 50

// Entry is one image in the playback sequence. Durable is the persisted form,
// Handle the live render reference owned by this entry until removal or
// teardown.
type Entry struct {
	ID          string
	DisplayName string
	Durable     resource.Durable
	Handle      *resource.Handle
}

// Releaser reclaims transient handles. Satisfied by *resource.Manager.
type Releaser interface {
	Release(h *resource.Handle)
}

// Collection owns the ordered image sequence and the current playback index.
// Insertion order is playback order. All mutations go through its methods;
// each successful mutation emits a coalesced change notification that the
// persistence layer subscribes to.
type Collection struct {
	releaser Releaser
	max      int

	mu      sync.Mutex
	entries []*Entry
	current int

	changed chan struct{}
}

// New creates an empty collection. max <= 0 falls back to DefaultMaxImages.
func New(max int, releaser Releaser) *Collection {
	if max <= 0 {
		max = DefaultMaxImages
	}
	return &Collection{
		releaser: releaser,
		max:      max,
		changed:  make(chan struct{}, 1),
	}
}

// Changed delivers a signal after every successful mutation. The channel has
// capacity one; bursts coalesce into a single pending signal.
func (c *Collection) Changed() <-chan struct{} {
	return c.changed
}

func (c *Collection) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Remaining reports how many more entries the collection can accept.
func (c *Collection) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max - len(c.entries)
}

// Add appends entries in submission order up to the remaining capacity.
// Entries beyond capacity are rejected and reported as a count, never
// silently dropped; their handles are released here since rejected entries
// never reach the removal path.
func (c *Collection) Add(entries []*Entry) (accepted []*Entry, rejected int) {
	if len(entries) == 0 {
		return nil, 0
	}

	c.mu.Lock()
	room := c.max - len(c.entries)
	if room < 0 {
		room = 0
	}
	cut := len(entries)
	if cut > room {
		cut = room
	}
	accepted = entries[:cut]
	overflow := entries[cut:]
	c.entries = append(c.entries, accepted...)
	c.mu.Unlock()

	for _, e := range overflow {
		c.releaser.Release(e.Handle)
	}
	rejected = len(overflow)

	if rejected > 0 {
		slog.Warn("Add: capacity exceeded", "accepted", len(accepted), "rejected", rejected, "max", c.max)
	}
	if len(accepted) > 0 {
		c.notify()
	}
	return accepted, rejected
}

// Remove deletes the entry with the given id and releases its handle.
// Returns nil without side effects when the id is absent.
//
// Index rules: removing the current entry resets the index to 0; removing any
// other entry leaves the index alone unless the shrink left it out of range,
// in which case it is clamped to the new last position.
func (c *Collection) Remove(id string) *Entry {
	c.mu.Lock()
	idx := -1
	for i, e := range c.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}

	removed := c.entries[idx]
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)

	switch {
	case len(c.entries) == 0:
		c.current = 0
	case idx == c.current:
		c.current = 0
	case c.current >= len(c.entries):
		c.current = len(c.entries) - 1
	}
	c.mu.Unlock()

	c.releaser.Release(removed.Handle)
	c.notify()
	return removed
}

// Reorder moves the entry at from to position to, shifting the entries in
// between. Out-of-range or equal indices are a no-op. Any actual reorder
// resets the current index to 0: reordering invalidates "where you were
// watching".
func (c *Collection) Reorder(from, to int) {
	c.mu.Lock()
	n := len(c.entries)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		c.mu.Unlock()
		return
	}

	moved := c.entries[from]
	rest := append(c.entries[:from], c.entries[from+1:]...)
	c.entries = append(rest[:to], append([]*Entry{moved}, rest[to:]...)...)
	c.current = 0
	c.mu.Unlock()

	c.notify()
}

// Len reports the number of entries.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CurrentIndex reports the playback position.
func (c *Collection) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Current returns the entry at the playback position, or nil when empty.
func (c *Collection) Current() *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	return c.entries[c.current]
}

// Advance moves the playback position forward by one, wrapping modulo the
// collection length. No-op on an empty collection.
func (c *Collection) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return
	}
	c.current = (c.current + 1) % len(c.entries)
}

// Entries returns a copy of the ordered entry list for display purposes.
func (c *Collection) Entries() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// SnapshotDurable is a pure read of the persistable projection of the
// collection, in playback order.
func (c *Collection) SnapshotDurable() []session.PersistedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.PersistedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, session.PersistedEntry{
			ID:          e.ID,
			DisplayName: e.DisplayName,
			Durable:     e.Durable,
		})
	}
	return out
}
