// Package chain supplies the discrete time axis the auction engine runs on.
// A "tick" is one block height; the engine never consults wall-clock time
// directly.
package chain

import (
	"sync/atomic"
	"time"
)

// Clock reports the current block height.
type Clock interface {
	Height() uint64
}

// ManualClock is a Clock whose height only moves when told to. Used in tests
// and by the admin mine endpoint.
type ManualClock struct {
	height atomic.Uint64
}

// NewManualClock creates a manual clock starting at the given height.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.height.Store(start)
	return c
}

func (c *ManualClock) Height() uint64 {
	return c.height.Load()
}

// Advance moves the clock forward by n blocks and returns the new height.
func (c *ManualClock) Advance(n uint64) uint64 {
	return c.height.Add(n)
}

// Set jumps the clock to the given height. Heights never move backwards;
// a lower value is ignored.
func (c *ManualClock) Set(height uint64) {
	for {
		cur := c.height.Load()
		if height <= cur {
			return
		}
		if c.height.CompareAndSwap(cur, height) {
			return
		}
	}
}

// IntervalClock derives the height from elapsed wall time at a fixed block
// interval, so a running server has a moving price without external input.
type IntervalClock struct {
	start    time.Time
	interval time.Duration
}

// NewIntervalClock creates a clock that mints one block per interval,
// starting at height 0 now.
func NewIntervalClock(interval time.Duration) *IntervalClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &IntervalClock{start: time.Now(), interval: interval}
}

func (c *IntervalClock) Height() uint64 {
	return uint64(time.Since(c.start) / c.interval)
}
