package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_CoalescesToLastState(t *testing.T) {
	clock := NewManualClock()
	var fired []int
	timer := New(500*time.Millisecond, func(v int) { fired = append(fired, v) }, WithClock[int](clock))

	timer.Arm(1)
	clock.Advance(200 * time.Millisecond)
	timer.Arm(2)
	clock.Advance(200 * time.Millisecond)
	timer.Arm(3)
	clock.Advance(499 * time.Millisecond)
	assert.Empty(t, fired)
	assert.True(t, timer.Pending())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []int{3}, fired)
	assert.False(t, timer.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, []int{3}, fired)
}

func TestTimer_Cancel(t *testing.T) {
	clock := NewManualClock()
	fired := 0
	timer := New(time.Second, func(string) { fired++ }, WithClock[string](clock))

	timer.Arm("a")
	timer.Cancel()
	assert.False(t, timer.Pending())
	assert.Equal(t, 0, clock.Scheduled())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, fired)

	timer.Arm("b")
	clock.Advance(time.Second)
	assert.Equal(t, 1, fired)
}

func TestTimer_StaleCallbackIgnored(t *testing.T) {
	var fired []string
	timer := New(time.Second, func(v string) { fired = append(fired, v) }, WithClock[string](&leakyClock{}))

	timer.Arm("first")
	first := lastCallback
	timer.Arm("second")
	second := lastCallback

	// a stopped timer whose callback still runs must not deliver
	first()
	assert.Empty(t, fired)

	second()
	assert.Equal(t, []string{"second"}, fired)

	second()
	assert.Equal(t, []string{"second"}, fired)
}

func TestTimer_RealClock(t *testing.T) {
	var fired atomic.Int32
	var last atomic.Value
	timer := New(20*time.Millisecond, func(v string) {
		last.Store(v)
		fired.Add(1)
	})

	timer.Arm("x")
	timer.Arm("y")

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "y", last.Load())
	assert.False(t, timer.Pending())
}

func TestTimer_CancelAfterFireIsNoOp(t *testing.T) {
	clock := NewManualClock()
	fired := 0
	timer := New(time.Second, func(int) { fired++ }, WithClock[int](clock))

	timer.Arm(1)
	clock.Advance(time.Second)
	timer.Cancel()

	assert.Equal(t, 1, fired)
	assert.False(t, timer.Pending())
}

var lastCallback func()

// leakyClock never runs callbacks by itself and ignores Stop, so tests can
// replay superseded callbacks.
type leakyClock struct{}

func (*leakyClock) AfterFunc(_ time.Duration, f func()) Stopper {
	lastCallback = f
	return noopStopper{}
}

type noopStopper struct{}

func (noopStopper) Stop() bool { return false }
