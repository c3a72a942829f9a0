// internal/sim/tickclock.go

package sim

import (
	"context"
	"sync/atomic"
	"time"
)

// TickClock emits ticks on Ch and counts them atomically.
type TickClock struct {
	Ch    chan int64
	count atomic.Int64
}

// NewTickClock creates a clock with a buffered tick channel.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch: make(chan int64, buffer),
	}
}

// Start emits a tick every interval until ctx is done, then closes Ch.
func (c *TickClock) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer close(c.Ch)
		for {
			select {
			case <-ticker.C:
				n := c.count.Add(1)
				select {
				case c.Ch <- n:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Count returns the number of ticks emitted so far.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
