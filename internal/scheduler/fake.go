package scheduler

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at start
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the frozen time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves time forward by d, stopping at each queued deadline on the
// way so that tasks, and the tasks they post, fire in deadline order.
func (c *FakeClock) Advance(l *Loop, d time.Duration) {
	target := c.Now().Add(d)
	ctx := context.Background()
	for {
		l.RunDue(ctx)
		next, ok := l.NextDeadline()
		if !ok || next.After(target) {
			break
		}
		if next.After(c.Now()) {
			c.set(next)
		}
	}
	c.set(target)
	l.RunDue(ctx)
}
