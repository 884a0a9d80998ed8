// Package debounce filters a sampled digital input into clean edges.
//
// Samples are shifted into a register; the filtered level only changes once
// the last Depth samples all agree.
package debounce

// Default is the history depth used for the watch button: at a 2 ms poll
// period a press must be stable for 12 ms.
const Default = 6

// Edge is a transition of the filtered level.
type Edge uint8

const (
	None Edge = iota
	Rising
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "none"
	}
}

// Debouncer is a shift-register filter. The zero value is not usable.
type Debouncer struct {
	history uint8
	mask    uint8
	high    bool
}

// New returns a filter requiring depth agreeing samples. depth is clamped
// to [2, 8]. The filtered level starts low.
func New(depth int) *Debouncer {
	if depth < 2 {
		depth = 2
	}
	if depth > 8 {
		depth = 8
	}
	return &Debouncer{mask: uint8(1<<depth - 1)}
}

// Update shifts in one sample and reports the resulting edge, if any.
func (d *Debouncer) Update(sample bool) Edge {
	d.history <<= 1
	if sample {
		d.history |= 1
	}
	switch h := d.history & d.mask; {
	case h == d.mask && !d.high:
		d.high = true
		return Rising
	case h == 0 && d.high:
		d.high = false
		return Falling
	}
	return None
}

// Level returns the filtered level.
func (d *Debouncer) Level() bool { return d.high }
