// Package spsc provides fixed-size packet rings shared between exactly one
// producer and one consumer running at different interrupt levels.
package spsc

import "sync/atomic"

// PacketSize is the size of one slot: a minimum BLE PDU buffer.
const PacketSize = 39

// Packet is one fixed-size slot.
type Packet struct {
	Len  uint8
	Data [PacketSize]byte
}

// Bytes returns the valid part of the packet.
func (p *Packet) Bytes() []byte { return p.Data[:p.Len] }

// Ring is a bounded single-producer, single-consumer packet queue.
// Indices are monotonic and wrap through the slot mask.
type Ring struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	mask  uint32
	split atomic.Bool
	slots []Packet
}

// New allocates a ring of n slots. n must be a power of two >= 2.
func New(n int) *Ring {
	if n < 2 || n&(n-1) != 0 {
		panic("spsc: slots must be power of two >= 2")
	}
	return &Ring{mask: uint32(n - 1), slots: make([]Packet, n)}
}

// Cap returns the number of slots.
func (r *Ring) Cap() int { return len(r.slots) }

// Split hands out the two ownership halves. It may be called once.
func (r *Ring) Split() (Producer, Consumer) {
	if !r.split.CompareAndSwap(false, true) {
		panic("spsc: ring already split")
	}
	return Producer{r: r}, Consumer{r: r}
}

// Producer is the write half of a Ring.
type Producer struct{ r *Ring }

// Space returns the number of free slots.
func (p Producer) Space() int {
	return len(p.r.slots) - int(p.r.head.Load()-p.r.tail.Load())
}

// Push copies b into the next slot. It returns false if the ring is full or
// b does not fit in a packet.
func (p Producer) Push(b []byte) bool {
	if len(b) > PacketSize {
		return false
	}
	r := p.r
	head := r.head.Load()
	if head-r.tail.Load() > r.mask {
		return false
	}
	slot := &r.slots[head&r.mask]
	slot.Len = uint8(copy(slot.Data[:], b))
	r.head.Store(head + 1)
	return true
}

// Consumer is the read half of a Ring.
type Consumer struct{ r *Ring }

// Len returns the number of queued packets.
func (c Consumer) Len() int {
	return int(c.r.head.Load() - c.r.tail.Load())
}

// Peek returns the oldest packet without consuming it. The returned packet
// stays valid until Pop.
func (c Consumer) Peek() (*Packet, bool) {
	r := c.r
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return nil, false
	}
	return &r.slots[tail&r.mask], true
}

// Pop copies the oldest packet into dst and consumes it.
func (c Consumer) Pop(dst []byte) (int, bool) {
	r := c.r
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	n := copy(dst, r.slots[tail&r.mask].Bytes())
	r.tail.Store(tail + 1)
	return n, true
}
