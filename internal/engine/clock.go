package engine

import "sync/atomic"

// Sequencer stamps pass diagnostics with increasing sequence numbers.
// Implemented by Clock and by testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Diagnostics are stamped with its seq
// values so their order survives the journal round-trip without wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
