package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget counts advances and Len calls; Len calls let tests observe that
// the run loop has processed a tick even when no advance resulted.
type fakeTarget struct {
	mu       sync.Mutex
	length   int
	advances int
	lenCalls int
}

func (f *fakeTarget) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lenCalls++
	return f.length
}

func (f *fakeTarget) Advance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances++
}

func (f *fakeTarget) setLength(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.length = n
}

func (f *fakeTarget) advanceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advances
}

func (f *fakeTarget) lenCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lenCalls
}

const (
	eventuallyTimeout = 2 * time.Second
	eventuallyTick    = 5 * time.Millisecond
)

func TestClampInterval(t *testing.T) {
	assert.Equal(t, MinInterval, ClampInterval(time.Millisecond))
	assert.Equal(t, MinInterval, ClampInterval(MinInterval))
	assert.Equal(t, 100*time.Millisecond, ClampInterval(100*time.Millisecond))
	assert.Equal(t, MaxInterval, ClampInterval(time.Minute))
}

func TestScheduler_SetInterval_Clamps(t *testing.T) {
	s := New(&fakeTarget{length: 1}, 100*time.Millisecond)
	s.SetInterval(time.Hour)
	assert.Equal(t, MaxInterval, s.Interval())
	s.SetInterval(0)
	assert.Equal(t, MinInterval, s.Interval())
}

func TestScheduler_Start_EmptyTargetIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(&fakeTarget{length: 0}, 100*time.Millisecond, WithClock(clock))

	s.Start()
	assert.False(t, s.Running())
}

func TestScheduler_PeriodicStrategy_AdvancesOncePerInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 3}
	s := New(target, 100*time.Millisecond, WithClock(clock))

	s.Start()
	defer s.Stop()
	require.True(t, s.Running())
	clock.BlockUntil(1)

	for i := 1; i <= 5; i++ {
		clock.Advance(100 * time.Millisecond)
		want := i
		require.Eventually(t, func() bool {
			return target.advanceCount() == want
		}, eventuallyTimeout, eventuallyTick, "expected %d advances", want)
	}
}

func TestScheduler_FrameStrategy_IntervalIsMinimumSpacing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 3}
	s := New(target, 25*time.Millisecond,
		WithClock(clock),
		WithFrameCadence(10*time.Millisecond),
		WithFrameThreshold(32*time.Millisecond))

	s.Start()
	defer s.Stop()
	require.True(t, s.Running())
	clock.BlockUntil(1)

	// Frame ticks at 10ms; an advance may only happen once >= 25ms elapsed
	// since the previous advance, so advances land on the 30ms grid.
	wantAdvances := []int{0, 0, 1, 1, 1, 2}
	for i, want := range wantAdvances {
		clock.Advance(10 * time.Millisecond)
		processed := i + 1
		require.Eventually(t, func() bool {
			return target.lenCallCount() >= processed
		}, eventuallyTimeout, eventuallyTick, "tick %d not processed", processed)
		require.Eventually(t, func() bool {
			return target.advanceCount() == want
		}, eventuallyTimeout, eventuallyTick, "after tick %d expected %d advances, have %d",
			processed, want, target.advanceCount())
	}
}

func TestScheduler_Stop_NoFurtherAdvances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 3}
	s := New(target, 100*time.Millisecond, WithClock(clock))

	s.Start()
	clock.BlockUntil(1)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return target.advanceCount() == 1
	}, eventuallyTimeout, eventuallyTick)

	s.Stop()
	require.False(t, s.Running())

	before := target.advanceCount()
	clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, target.advanceCount(), "no advance may occur after Stop returns")
}

func TestScheduler_Stop_Idempotent(t *testing.T) {
	s := New(&fakeTarget{length: 1}, 100*time.Millisecond, WithClock(clockwork.NewFakeClock()))
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_Start_Idempotent_SingleAdvancementSource(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 3}
	s := New(target, 100*time.Millisecond, WithClock(clock))

	s.Start()
	defer s.Stop()
	clock.BlockUntil(1)
	s.Start() // second Start must not spawn a second source

	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return target.advanceCount() == 1
	}, eventuallyTimeout, eventuallyTick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, target.advanceCount(), "two concurrent advancement sources detected")
}

func TestScheduler_EmptyTargetForcesImplicitStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 2}
	s := New(target, 100*time.Millisecond, WithClock(clock))

	s.Start()
	clock.BlockUntil(1)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return target.advanceCount() == 1
	}, eventuallyTimeout, eventuallyTick)

	target.setLength(0)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return !s.Running()
	}, eventuallyTimeout, eventuallyTick, "scheduler should stop implicitly on empty target")
	assert.Equal(t, 1, target.advanceCount())
}

func TestScheduler_RestartAfterImplicitStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 1}
	s := New(target, 100*time.Millisecond, WithClock(clock))

	s.Start()
	clock.BlockUntil(1)
	target.setLength(0)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return !s.Running()
	}, eventuallyTimeout, eventuallyTick)

	target.setLength(2)
	s.Start()
	defer s.Stop()
	require.True(t, s.Running())
}

func TestScheduler_StrategyReevaluatedOnStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &fakeTarget{length: 3}
	s := New(target, 20*time.Millisecond,
		WithClock(clock),
		WithFrameCadence(10*time.Millisecond))

	// 20ms <= 32ms threshold: frame strategy, cadence ticks at 10ms.
	s.Start()
	clock.BlockUntil(1)
	clock.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		return target.lenCallCount() >= 1
	}, eventuallyTimeout, eventuallyTick)
	assert.Equal(t, 0, target.advanceCount(), "10ms elapsed is below the 20ms interval")
	s.Stop()

	// Above the threshold the periodic strategy fires exactly per interval.
	s.SetInterval(200 * time.Millisecond)
	s.Start()
	defer s.Stop()
	clock.BlockUntil(1)
	clock.Advance(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		return target.advanceCount() == 1
	}, eventuallyTimeout, eventuallyTick)
}
