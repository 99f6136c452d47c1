// Package debounce provides a cancellable timer that delivers only the last
// armed state once the delay has passed without a new Arm.
package debounce

import (
	"sync"
	"time"
)

// Clock schedules callbacks. RealClock uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

type RealClock struct{}

func (RealClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type Timer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(T)
	clock   Clock
	pending Stopper
	state   T
	gen     uint64
	armed   bool
}

type Option[T any] func(*Timer[T])

func WithClock[T any](c Clock) Option[T] {
	return func(t *Timer[T]) { t.clock = c }
}

// New returns a Timer that calls fire with the last armed state once delay
// has elapsed since the last Arm. fire runs with the timer locked and must
// not call Arm or Cancel.
func New[T any](delay time.Duration, fire func(T), opts ...Option[T]) *Timer[T] {
	t := &Timer[T]{delay: delay, fire: fire, clock: RealClock{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm stores state and restarts the delay. An earlier pending fire is
// dropped.
func (t *Timer[T]) Arm(state T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	gen := t.gen
	t.state = state
	t.armed = true
	t.pending = t.clock.AfterFunc(t.delay, func() { t.expire(gen) })
}

// Cancel drops the pending fire. If a fire is running, Cancel waits for it,
// so no fire starts after Cancel returns.
func (t *Timer[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
	t.armed = false
	var zero T
	t.state = zero
}

// Pending reports whether a fire is scheduled.
func (t *Timer[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *Timer[T]) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// superseded by a later Arm or Cancel
	if gen != t.gen || !t.armed {
		return
	}
	t.armed = false
	t.pending = nil
	state := t.state
	var zero T
	t.state = zero
	t.fire(state)
}
