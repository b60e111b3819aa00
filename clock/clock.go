// Package clock provides the microsecond time sources used by task delays.
//
// Every source counts in unsigned 32-bit microseconds and wraps around about
// every 71.6 minutes, exactly like the Arduino micros() counter. Compare
// readings with Reached or Remaining, never with < or >.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic microsecond counter, readable without side effects
// on the scheduler.
type Clock interface {
	Micros() uint32
}

// Advancer is a clock the caller can move forward, as a simulation does
// when main busy-waits.
type Advancer interface {
	Clock
	Advance(us uint32)
}

// Millis returns the reading of c in milliseconds.
func Millis(c Clock) uint32 {
	return c.Micros() / 1000
}

// Remaining is the signed distance from now to end, wraparound safe.
func Remaining(end uint32, now uint32) int32 {
	return int32(end - now)
}

// Reached reports whether now is at or past end.
func Reached(end uint32, now uint32) bool {
	return Remaining(end, now) <= 0
}

// Counter is a deterministic clock. It only moves by Advance(), or by Step
// microseconds after every reading, which stands in for the time spent
// between two polls.
type Counter struct {
	Step uint32 // Microseconds added after each reading.

	now atomic.Uint32
}

var _ Advancer = (*Counter)(nil)

// Micros returns the current count, then advances it by Step.
func (c *Counter) Micros() uint32 {
	return c.now.Add(c.Step) - c.Step
}

// Advance moves the counter forward.
func (c *Counter) Advance(us uint32) {
	c.now.Add(us)
}

// Set the counter to an absolute value.
func (c *Counter) Set(us uint32) {
	c.now.Store(us)
}

// Wall follows the host's monotonic clock.
type Wall struct {
	start  time.Time
	offset uint32
}

var _ Clock = (*Wall)(nil)

// NewWall creates a wall clock reading offset at creation time.
func NewWall(offset uint32) (w *Wall) {
	w = &Wall{
		start:  time.Now(),
		offset: offset,
	}
	return
}

// Micros returns elapsed microseconds plus the start offset, truncated to 32 bits.
func (w *Wall) Micros() uint32 {
	return w.offset + uint32(time.Since(w.start).Microseconds())
}
