//go:build !tinygo

package hal

import "time"

// CounterHz is the rate of the host counter, matching TIMER1 on the board.
const CounterHz = 1_000_000

// hostCounter is a 32-bit microsecond counter derived from the wall clock.
// offset shifts its start so runs can cross the wrap early.
type hostCounter struct {
	t0     time.Time
	now    func() time.Time
	offset uint32
}

func newHostCounter(offset uint32) *hostCounter {
	return newHostCounterWithClock(offset, time.Now)
}

func newHostCounterWithClock(offset uint32, now func() time.Time) *hostCounter {
	return &hostCounter{t0: now(), now: now, offset: offset}
}

func (c *hostCounter) Now() uint32 {
	return c.offset + uint32(c.now().Sub(c.t0)/time.Microsecond)
}
