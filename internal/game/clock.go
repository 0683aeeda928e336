package game

import (
	"sync"
	"time"
)

// Clock is the wall-clock match timer. It counts from construction
// until Stop and has no bearing on legality. Elapsed time is derived
// from timestamps, so an abandoned clock holds no resources.
type Clock struct {
	mu      sync.Mutex
	started time.Time
	stopped time.Time
}

func NewClock() *Clock {
	return &Clock{started: time.Now()}
}

func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.IsZero() {
		c.stopped = time.Now()
	}
}

func (c *Clock) Seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	end := c.stopped
	if end.IsZero() {
		end = time.Now()
	}
	return int(end.Sub(c.started).Seconds())
}
