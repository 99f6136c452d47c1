package debounce

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a Clock driven by Advance instead of wall time.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Duration
	seq     uint64
	f       func()
	stopped bool
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	mt := &manualTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, mt)
	return mt
}

// Advance moves the clock forward by d and runs every callback that came
// due, in deadline order, on the calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now
	var due, rest []*manualTimer
	for _, mt := range c.pending {
		switch {
		case mt.stopped:
		case mt.at <= now:
			due = append(due, mt)
		default:
			rest = append(rest, mt)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, mt := range due {
		mt.f()
	}
}

// Scheduled returns the number of callbacks waiting to run.
func (c *ManualClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, mt := range c.pending {
		if !mt.stopped {
			n++
		}
	}
	return n
}

func (mt *manualTimer) Stop() bool {
	mt.clock.mu.Lock()
	defer mt.clock.mu.Unlock()
	if mt.stopped {
		return false
	}
	mt.stopped = true
	return true
}
