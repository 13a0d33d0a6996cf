package testutil

import (
	"sync"
	"time"
)

// DeterministicClock hands out trackpoint timestamps in milliseconds for
// tests. Each call to Next advances by a fixed step, so a recorded track has
// the same timing on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	now   int64
	begun bool
}

// NewDeterministicClock creates a clock whose first Next() returns
// startMillis and each later call adds step.
func NewDeterministicClock(startMillis int64, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: startMillis, step: step.Milliseconds(), now: startMillis}
}

// Next returns the next timestamp.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.begun {
		c.begun = true
		return c.now
	}
	c.now += c.step
	return c.now
}

// Current returns the last timestamp handed out, or the start time if Next
// has not been called.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance adds a gap, e.g. a pause, before the next timestamp.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Milliseconds()
}

// Reset rewinds the clock to its start time.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
	c.begun = false
}
