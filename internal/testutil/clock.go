// Package testutil holds deterministic stand-ins for time and id sources
// used by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe fake clock for tests.
//
// Each call to Now returns the current instant and then advances it by
// step. A zero step yields a frozen clock. Pass clock.Now wherever a
// func() time.Time is accepted.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewClock creates a clock whose first reading is start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the next reading without advancing.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Reset returns the clock to its start.
//
// Used for test reuse. After Reset, the next Now returns start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
