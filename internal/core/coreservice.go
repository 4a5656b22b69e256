package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jo-hoe/goslide/internal/collection"
	"github.com/jo-hoe/goslide/internal/input"
	"github.com/jo-hoe/goslide/internal/playback"
	"github.com/jo-hoe/goslide/internal/resource"
	"github.com/jo-hoe/goslide/internal/session"
	"github.com/jo-hoe/goslide/internal/store"
)

// FileUpload is one raw file handed in by the UI layer.
type FileUpload struct {
	Name string
	Data []byte
}

// ImportResult reports the outcome of a batch import. Rejected counts files
// turned away for capacity, Failed counts files that could not be decoded;
// neither aborts the batch.
type ImportResult struct {
	Accepted int
	Rejected int
	Failed   int
}

// CoreService wires the resource manager, collection, scheduler and
// persistence coordinator together and exposes the mutation surface the
// frontend consumes.
type CoreService struct {
	config      *ServiceConfig
	resources   *resource.Manager
	collection  *collection.Collection
	scheduler   *playback.Scheduler
	coordinator *session.Coordinator
	kv          store.KeyValueStore
	gate        *input.Gate
	errors      *errorLog

	stopWatch    chan struct{}
	watchDone    chan struct{}
	watchStarted bool
	closeOnce    sync.Once
}

// Option adjusts core service construction.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock injects a clock into the scheduler and persistence coordinator;
// tests pass a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// NewCoreService builds the full component graph from configuration. An
// unavailable store is downgraded to "no persistence" rather than failing
// startup; everything else keeps working.
func NewCoreService(config *ServiceConfig, opts ...Option) *CoreService {
	o := &options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(o)
	}

	errors := &errorLog{}

	var kv store.KeyValueStore
	if config.Store.Type == "" {
		slog.Warn("no store configured, session persistence disabled")
	} else {
		var err error
		kv, err = store.NewStore(config.Store.Type, config.Store.ConnectionString)
		if err != nil {
			slog.Error("store unavailable, session persistence disabled", "error", err)
			errors.Report("initialize store", err)
			kv = nil
		}
	}

	resources := resource.NewManager(config.SVGFallbackWidth, config.SVGFallbackHeight)
	images := collection.New(config.MaxImages, resources)

	interval := time.Duration(config.Playback.DefaultIntervalMs) * time.Millisecond
	scheduler := playback.New(images, interval,
		playback.WithClock(o.clock),
		playback.WithFrameThreshold(time.Duration(config.Playback.FrameThresholdMs)*time.Millisecond))

	coordinator := session.NewCoordinator(kv, config.Session.Key, errors,
		session.WithClock(o.clock),
		session.WithDebounceWindow(time.Duration(config.Session.DebounceMs)*time.Millisecond))

	service := &CoreService{
		config:      config,
		resources:   resources,
		collection:  images,
		scheduler:   scheduler,
		coordinator: coordinator,
		kv:          kv,
		errors:      errors,
		stopWatch:   make(chan struct{}),
		watchDone:   make(chan struct{}),
	}
	service.gate = input.NewGate(config.ToggleKey, service.TogglePlayback)
	return service
}

// Start restores the previous session and begins watching for mutations.
// The restore read fully settles before the first debounced save can arm, so
// a fresh empty state can never overwrite a not-yet-restored snapshot.
func (s *CoreService) Start(ctx context.Context) error {
	snapshot, found, err := s.coordinator.Load(ctx)
	if err != nil {
		s.errors.Report("restore session", err)
		slog.Error("session restore failed, continuing with empty state", "error", err)
	}
	if found {
		s.restore(snapshot)
	}

	// The restore adds above emitted a change signal; drain it so startup
	// does not immediately rewrite the state it just read.
	select {
	case <-s.collection.Changed():
	default:
	}

	s.watchStarted = true
	go s.watchChanges()
	return nil
}

func (s *CoreService) restore(snapshot *session.Snapshot) {
	s.scheduler.SetInterval(time.Duration(snapshot.IntervalMs) * time.Millisecond)

	entries := make([]*collection.Entry, 0, len(snapshot.Entries))
	for _, pe := range snapshot.Entries {
		handle, err := s.resources.Materialize(pe.Durable)
		if err != nil {
			// Drop this one entry, keep the rest.
			s.errors.Report("restore image "+pe.DisplayName, err)
			slog.Warn("dropping unrestorable image", "id", pe.ID, "name", pe.DisplayName, "error", err)
			continue
		}
		entries = append(entries, &collection.Entry{
			ID:          pe.ID,
			DisplayName: pe.DisplayName,
			Durable:     pe.Durable,
			Handle:      handle,
		})
	}

	accepted, rejected := s.collection.Add(entries)
	slog.Info("session restored",
		"entries", len(accepted), "rejected", rejected, "interval", s.scheduler.Interval())
}

// watchChanges feeds every settled collection mutation into the debounced
// persistence layer.
func (s *CoreService) watchChanges() {
	defer close(s.watchDone)
	for {
		select {
		case <-s.stopWatch:
			return
		case <-s.collection.Changed():
			s.coordinator.ScheduleSave(s.snapshot())
		}
	}
}

func (s *CoreService) snapshot() *session.Snapshot {
	return &session.Snapshot{
		IntervalMs: int(s.scheduler.Interval() / time.Millisecond),
		Entries:    s.collection.SnapshotDurable(),
	}
}

// ImportFiles decodes and adds the given files in submission order. Files
// beyond the remaining capacity are rejected without being decoded; decode
// failures are isolated per file and never abort the batch.
func (s *CoreService) ImportFiles(files []FileUpload) ImportResult {
	var result ImportResult

	remaining := s.collection.Remaining()
	entries := make([]*collection.Entry, 0, len(files))
	for _, f := range files {
		if len(entries) >= remaining {
			result.Rejected++
			continue
		}
		durable, handle, err := s.resources.Import(f.Data, f.Name)
		if err != nil {
			result.Failed++
			s.errors.Report("import "+f.Name, err)
			continue
		}
		entries = append(entries, &collection.Entry{
			ID:          uuid.NewString(),
			DisplayName: f.Name,
			Durable:     durable,
			Handle:      handle,
		})
	}

	accepted, rejected := s.collection.Add(entries)
	result.Accepted = len(accepted)
	result.Rejected += rejected
	return result
}

// RemoveImage deletes one image by id. Returns false when the id is unknown.
func (s *CoreService) RemoveImage(id string) bool {
	return s.collection.Remove(id) != nil
}

// ReorderImages moves the entry at from to position to.
func (s *CoreService) ReorderImages(from, to int) {
	s.collection.Reorder(from, to)
}

// MoveImage shifts one image a single position up or down the sequence.
func (s *CoreService) MoveImage(id string, dir string) bool {
	entries := s.collection.Entries()
	idx := -1
	for i, e := range entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	target := idx
	switch dir {
	case "up":
		target = idx - 1
	case "down":
		target = idx + 1
	}
	if target == idx || target < 0 || target >= len(entries) {
		return false
	}
	s.collection.Reorder(idx, target)
	return true
}

// SetIntervalMs applies a new playback interval and returns the clamped value
// actually stored. A running show restarts so the timing strategy
// re-evaluates against the new interval.
func (s *CoreService) SetIntervalMs(ms int) int {
	d := playback.ClampInterval(time.Duration(ms) * time.Millisecond)

	wasRunning := s.scheduler.Running()
	if wasRunning {
		s.scheduler.Stop()
	}
	s.scheduler.SetInterval(d)
	if wasRunning {
		s.scheduler.Start()
	}

	// Interval changes do not flow through the collection, so push the
	// snapshot explicitly.
	s.coordinator.ScheduleSave(s.snapshot())
	return int(d / time.Millisecond)
}

// Play starts the slideshow. No-op when already running or empty.
func (s *CoreService) Play() { s.scheduler.Start() }

// StopPlayback halts the slideshow. No further advancement once it returns.
func (s *CoreService) StopPlayback() { s.scheduler.Stop() }

// TogglePlayback flips between running and stopped.
func (s *CoreService) TogglePlayback() {
	if s.scheduler.Running() {
		s.scheduler.Stop()
	} else {
		s.scheduler.Start()
	}
}

// HandleKey routes a key event through the input gate.
func (s *CoreService) HandleKey(key string, textEntryFocused bool) bool {
	return s.gate.HandleKey(key, textEntryFocused)
}

// Playing reports whether the slideshow is running.
func (s *CoreService) Playing() bool { return s.scheduler.Running() }

// IntervalMs reports the current playback interval in milliseconds.
func (s *CoreService) IntervalMs() int {
	return int(s.scheduler.Interval() / time.Millisecond)
}

// Current returns the entry at the playback position, nil when empty.
func (s *CoreService) Current() *collection.Entry { return s.collection.Current() }

// CurrentIndex reports the playback position.
func (s *CoreService) CurrentIndex() int { return s.collection.CurrentIndex() }

// Entries returns the ordered image list.
func (s *CoreService) Entries() []*collection.Entry { return s.collection.Entries() }

// Remaining reports how many more images can be added.
func (s *CoreService) Remaining() int { return s.collection.Remaining() }

// LookupHandle resolves a transient display handle by id.
func (s *CoreService) LookupHandle(id string) *resource.Handle {
	return s.resources.Lookup(id)
}

// RecentErrors returns the latest non-fatal operational errors, newest last.
func (s *CoreService) RecentErrors() []ErrorRecord { return s.errors.Recent() }

// Close tears the service down: playback stops, the mutation watcher exits,
// any pending save flushes, and every live handle is released exactly once.
func (s *CoreService) Close() error {
	s.closeOnce.Do(func() {
		s.scheduler.Stop()

		close(s.stopWatch)
		if s.watchStarted {
			<-s.watchDone
		}

		s.coordinator.Close()
		s.resources.ReleaseAll()

		if s.kv != nil {
			if err := s.kv.Close(); err != nil {
				slog.Error("failed to close store", "error", err)
			}
		}
	})
	return nil
}
