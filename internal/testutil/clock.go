package testutil

import "sync"

// MillisClock is a deterministic millisecond clock for tests.
//
// Each call to NowMillis advances by Step and returns the new value, so
// successive writes get strictly increasing timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MillisClock struct {
	mu    sync.Mutex
	start int64
	now   int64
	step  int64
}

// NewMillisClock creates a clock whose first NowMillis returns start+step.
// A step <= 0 is treated as 1.
func NewMillisClock(start, step int64) *MillisClock {
	if step <= 0 {
		step = 1
	}
	return &MillisClock{start: start, now: start, step: step}
}

// NowMillis advances the clock and returns the new value.
func (c *MillisClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the last value handed out without advancing.
func (c *MillisClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock so the next NowMillis returns v+step.
func (c *MillisClock) Set(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = v
}

// Reset returns the clock to its start value.
//
// Used for test reuse: the same scenario produces the same timestamps.
func (c *MillisClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
