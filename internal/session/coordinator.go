package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jo-hoe/goslide/internal/store"
)

// DefaultDebounceWindow is the quiet period after the last mutation during
// which no write occurs; a new mutation restarts it.
const DefaultDebounceWindow = 400 * time.Millisecond

const writeTimeout = 5 * time.Second

// ErrorSink receives non-fatal operational errors. Persistence failures are
// reported here and never propagate to playback or collection editing.
type ErrorSink interface {
	Report(op string, err error)
}

// Coordinator debounces session snapshot writes and performs the single
// startup read. Saves requested before Load has settled are parked and only
// armed afterwards, so a freshly started process can never overwrite a saved
// snapshot with its own empty state.
//
// A nil store degrades the coordinator to "no persistence": Load reports an
// absent snapshot and scheduled saves are dropped silently. Everything else
// in the system stays functional.
type Coordinator struct {
	kv     store.KeyValueStore
	key    string
	window time.Duration
	clock  clockwork.Clock
	sink   ErrorSink

	mu      sync.Mutex
	ready   bool
	closed  bool
	pending *Snapshot
	timer   clockwork.Timer

	// serializes actual store writes; never held together with mu
	writeMu sync.Mutex
}

// Option adjusts coordinator tuning knobs.
type Option func(*Coordinator)

// WithClock injects a clock; tests pass a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithDebounceWindow overrides the quiet window.
func WithDebounceWindow(d time.Duration) Option {
	return func(c *Coordinator) { c.window = d }
}

// NewCoordinator creates a coordinator writing under the given store key.
func NewCoordinator(kv store.KeyValueStore, key string, sink ErrorSink, opts ...Option) *Coordinator {
	c := &Coordinator{
		kv:     kv,
		key:    key,
		window: DefaultDebounceWindow,
		clock:  clockwork.NewRealClock(),
		sink:   sink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load performs the single startup read. Absence of prior data is not an
// error; it is the empty state. Must be called before mutations start
// flowing: no scheduled save fires until Load has settled.
func (c *Coordinator) Load(ctx context.Context) (*Snapshot, bool, error) {
	if c.kv == nil {
		c.markReady()
		return nil, false, nil
	}

	value, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		// Definitive failure still opens the save gate: the system continues
		// on empty state and future saves must not stay blocked forever.
		c.markReady()
		return nil, false, err
	}
	if !found {
		c.markReady()
		return nil, false, nil
	}

	snapshot, err := decodeSnapshot(value)
	c.markReady()
	if err != nil {
		return nil, false, err
	}
	return snapshot, true, nil
}

func (c *Coordinator) markReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.ready = true
	if c.pending != nil {
		c.armLocked()
	}
}

// ScheduleSave records the snapshot as the pending write and (re)starts the
// debounce window. Within a burst of rapid mutations only the last snapshot
// is ever written.
func (c *Coordinator) ScheduleSave(snapshot *Snapshot) {
	if c.kv == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = snapshot
	if !c.ready {
		return
	}
	c.armLocked()
}

func (c *Coordinator) armLocked() {
	if c.timer == nil {
		c.timer = c.clock.AfterFunc(c.window, c.flushPending)
		return
	}
	c.timer.Reset(c.window)
}

func (c *Coordinator) flushPending() {
	c.mu.Lock()
	snapshot := c.pending
	c.pending = nil
	c.mu.Unlock()

	if snapshot != nil {
		c.write(snapshot)
	}
}

func (c *Coordinator) write(snapshot *Snapshot) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		c.report("encode session snapshot", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.kv.Put(ctx, c.key, data); err != nil {
		c.report("persist session snapshot", err)
		return
	}
	slog.Debug("session snapshot persisted",
		"entries", len(snapshot.Entries), "interval_ms", snapshot.IntervalMs)
}

func (c *Coordinator) report(op string, err error) {
	slog.Error("session persistence failure", "op", op, "error", err)
	if c.sink != nil {
		c.sink.Report(op, err)
	}
}

// Close cancels the debounce timer and flushes any pending snapshot
// synchronously, so the latest settled state survives teardown. A snapshot
// parked behind an unfinished Load is discarded, never written.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	timer := c.timer
	c.timer = nil
	snapshot := c.pending
	c.pending = nil
	ready := c.ready
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if snapshot != nil && ready && c.kv != nil {
		c.write(snapshot)
	}
}
