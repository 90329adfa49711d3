package state

import "sync/atomic"

// Clock hands out the store's revision numbers. Every applied mutation takes
// the next value, so a higher revision always describes a newer state.
type Clock struct {
	rev atomic.Int64
}

// NewClock creates a clock starting at revision 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known revision.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.rev.Store(start)
	return c
}

// Next advances the clock and returns the new revision.
func (c *Clock) Next() int64 {
	return c.rev.Add(1)
}

// Current returns the latest revision without advancing.
func (c *Clock) Current() int64 {
	return c.rev.Load()
}
