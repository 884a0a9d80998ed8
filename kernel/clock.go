package kernel

// Instant is a reading of the free-running hardware counter.
//
// The counter wraps silently, so instants are points on a ring: ordering is
// decided by the sign of the difference, never by comparing raw values.
type Instant uint32

// Duration is a span of counter ticks.
type Duration uint32

// Counter is a free-running 32-bit hardware counter.
type Counter interface {
	Now() uint32
}

// Compare returns -1 if a is earlier than b, +1 if a is later, 0 if equal.
func Compare(a, b Instant) int {
	d := int32(a - b)
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is earlier than u.
func (t Instant) Before(u Instant) bool { return int32(t-u) < 0 }

// After reports whether t is later than u.
func (t Instant) After(u Instant) bool { return int32(t-u) > 0 }

// Add returns t+d modulo the counter width.
func (t Instant) Add(d Duration) Instant { return t + Instant(d) }

// Sub returns the signed distance t-u in ticks.
func (t Instant) Sub(u Instant) int32 { return int32(t - u) }

// Clock converts between counter ticks and wall time for a counter running
// at Hz ticks per second.
type Clock struct {
	counter Counter
	hz      uint32
}

// NewClock wraps counter, which must tick at hz.
func NewClock(counter Counter, hz uint32) Clock {
	if hz == 0 {
		hz = 1
	}
	return Clock{counter: counter, hz: hz}
}

// Now returns the current counter value.
func (c Clock) Now() Instant {
	if c.counter == nil {
		return 0
	}
	return Instant(c.counter.Now())
}

// ElapsedSince returns the ticks from t to now, modulo the counter width.
func (c Clock) ElapsedSince(t Instant) Duration {
	return Duration(c.Now() - t)
}

// Hz returns the counter frequency.
func (c Clock) Hz() uint32 { return c.hz }

// Millis returns the duration of n milliseconds.
func (c Clock) Millis(n uint32) Duration {
	return Duration(uint64(n) * uint64(c.hz) / 1000)
}

// Secs returns the duration of n seconds.
func (c Clock) Secs(n uint32) Duration {
	return Duration(uint64(n) * uint64(c.hz))
}

// PerSecond returns the period of an n Hz rate. n==0 is coerced to 1.
func (c Clock) PerSecond(n uint32) Duration {
	if n == 0 {
		n = 1
	}
	return Duration(c.hz / n)
}
