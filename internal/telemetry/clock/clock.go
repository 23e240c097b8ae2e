// Package clock issues event identifiers and monotonic timestamps.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// IdentityClock hands out per-session unique event identifiers and
// high-resolution local timestamps. Timestamps come from the runtime's
// monotonic clock, so they never move backwards when the wall clock is
// adjusted, and they share one process-fixed epoch.
//
// All methods are safe for concurrent use.
type IdentityClock struct {
	epoch time.Time
	seq   atomic.Uint64
}

// New returns an IdentityClock whose epoch is the moment of the call.
func New() *IdentityClock {
	return &IdentityClock{epoch: time.Now()}
}

// NextID returns an identifier never previously returned by this clock.
func (c *IdentityClock) NextID() string {
	return fmt.Sprintf("ev-%06d", c.seq.Add(1))
}

// NowNS returns nanoseconds since the process-fixed epoch. Successive calls
// never decrease.
func (c *IdentityClock) NowNS() int64 {
	return time.Since(c.epoch).Nanoseconds()
}

// Issued reports how many identifiers have been handed out.
func (c *IdentityClock) Issued() uint64 {
	return c.seq.Load()
}
