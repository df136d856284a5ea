package engine

import (
	"sync"
	"time"
)

// Clock tracks elapsed competition time. Elapsed time is computed on
// read from the accumulated duration plus the time since the last start,
// so readers never see a torn minutes/seconds pair.
type Clock struct {
	mu          sync.RWMutex
	accumulated time.Duration
	lastStart   time.Time
	active      bool
}

func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return
	}
	c.lastStart = time.Now()
	c.active = true
}

func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.accumulated += time.Since(c.lastStart)
	c.active = false
}

func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accumulated = 0
	c.lastStart = time.Now()
}

// Restore replaces elapsed time from a snapshot. The clock comes back
// stopped so an operator explicitly resumes after a load.
func (c *Clock) Restore(elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accumulated = elapsed
	c.active = false
}

func (c *Clock) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Clock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsedLocked()
}

// ElapsedMinutes is the competition minute counter injects are scheduled on
func (c *Clock) ElapsedMinutes() int {
	return int(c.Elapsed() / time.Minute)
}

// Snapshot returns one consistent (minutes, seconds, active) triple
func (c *Clock) Snapshot() (int, int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	elapsed := c.elapsedLocked()
	return int(elapsed / time.Minute), int(elapsed/time.Second) % 60, c.active
}

func (c *Clock) elapsedLocked() time.Duration {
	if c.active {
		return c.accumulated + time.Since(c.lastStart)
	}
	return c.accumulated
}
