package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// MinInterval and MaxInterval bound the playback interval; every write is
	// clamped into this range.
	MinInterval = 16 * time.Millisecond
	MaxInterval = 10 * time.Second

	// DefaultInterval is used when no interval has been configured or restored.
	DefaultInterval = 100 * time.Millisecond

	// DefaultFrameThreshold is the interval at or below which the scheduler
	// switches from a plain periodic timer to the frame-cadence strategy.
	DefaultFrameThreshold = 32 * time.Millisecond

	// DefaultFrameCadence approximates a 60Hz display refresh.
	DefaultFrameCadence = time.Second / 60
)

// Target is the collection surface the scheduler drives: it only reads the
// length and advances the current index.
type Target interface {
	Len() int
	Advance()
}

// ClampInterval forces d into [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// advanceHandle is the single live advancement source: one run-loop goroutine
// with synchronous cancellation. Exactly one controller owns it.
type advanceHandle struct {
	stop chan struct{}
	done chan struct{}
}

// cancel stops the run loop and blocks until it has fully exited, so no
// advancement can land after cancel returns to the caller.
func (h *advanceHandle) cancel() {
	close(h.stop)
	<-h.done
}

// Scheduler advances a collection's current index at a target interval while
// running. The timing strategy is re-chosen from the current interval on
// every Start: very short intervals piggyback on a frame-cadence ticker that
// treats the interval as minimum spacing; coarser intervals use a periodic
// ticker at exactly the interval. At most one advancement source is ever
// live.
type Scheduler struct {
	clock          clockwork.Clock
	target         Target
	frameThreshold time.Duration
	frameCadence   time.Duration

	mu       sync.Mutex
	interval time.Duration
	handle   *advanceHandle
}

// Option adjusts scheduler tuning knobs.
type Option func(*Scheduler)

// WithClock injects a clock; tests pass a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithFrameThreshold overrides the strategy switch point.
func WithFrameThreshold(d time.Duration) Option {
	return func(s *Scheduler) { s.frameThreshold = d }
}

// WithFrameCadence overrides the frame ticker period.
func WithFrameCadence(d time.Duration) Option {
	return func(s *Scheduler) { s.frameCadence = d }
}

// New creates a stopped scheduler over the given target.
func New(target Target, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:          clockwork.NewRealClock(),
		target:         target,
		frameThreshold: DefaultFrameThreshold,
		frameCadence:   DefaultFrameCadence,
		interval:       ClampInterval(interval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval reports the current clamped interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval stores a new interval, clamped. A running scheduler keeps its
// current strategy; the owner restarts playback when the strategy should be
// re-evaluated.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = ClampInterval(d)
}

// Running reports whether an advancement source is live.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked()
}

func (s *Scheduler) liveLocked() bool {
	if s.handle == nil {
		return false
	}
	select {
	case <-s.handle.done:
		// Run loop exited on its own (implicit stop on empty target).
		s.handle = nil
		return false
	default:
		return true
	}
}

// Start begins playback. No-op when already running or when the target is
// empty. The strategy is chosen here from the current interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked() || s.target.Len() == 0 {
		return
	}

	h := &advanceHandle{stop: make(chan struct{}), done: make(chan struct{})}
	s.handle = h
	interval := s.interval

	if interval <= s.frameThreshold {
		slog.Debug("Start: frame-cadence strategy", "interval", interval, "cadence", s.frameCadence)
		go s.runFrameLoop(h, interval)
	} else {
		slog.Debug("Start: periodic strategy", "interval", interval)
		go s.runPeriodicLoop(h, interval)
	}
}

// Stop halts playback synchronously: when it returns, no further advancement
// can occur. No-op when already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		h.cancel()
	}
}

// runPeriodicLoop fires at exactly the interval; each firing advances the
// index by one, wrapping modulo the target length.
func (s *Scheduler) runPeriodicLoop(h *advanceHandle, interval time.Duration) {
	defer close(h.done)

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.Chan():
			select {
			case <-h.stop:
				return
			default:
			}
			if s.target.Len() == 0 {
				s.implicitStop(h)
				return
			}
			s.target.Advance()
		}
	}
}

// runFrameLoop ticks at the frame cadence and advances only once at least
// the interval has elapsed since the previous advance, so the interval is a
// minimum spacing rather than an exact period.
func (s *Scheduler) runFrameLoop(h *advanceHandle, interval time.Duration) {
	defer close(h.done)

	ticker := s.clock.NewTicker(s.frameCadence)
	defer ticker.Stop()

	last := s.clock.Now()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.Chan():
			select {
			case <-h.stop:
				return
			default:
			}
			if s.target.Len() == 0 {
				s.implicitStop(h)
				return
			}
			now := s.clock.Now()
			if now.Sub(last) < interval {
				continue
			}
			s.target.Advance()
			last = now
		}
	}
}

// implicitStop clears the handle when the run loop exits because the target
// became empty. Guarded against an interleaved Stop/Start having already
// replaced it.
func (s *Scheduler) implicitStop(h *advanceHandle) {
	slog.Debug("scheduler: target empty, stopping playback")
	s.mu.Lock()
	if s.handle == h {
		s.handle = nil
	}
	s.mu.Unlock()
}
