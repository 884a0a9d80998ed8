// Package ble bridges the link layer's hard interrupts to a deferred worker
// task. The interrupt stage services one event, reprograms the radio and
// the link timer, and only arms the worker when the link layer reports
// queued protocol work. The worker drains that work to exhaustion.
package ble

import (
	"fmt"

	"pinewatch/kernel"
	"pinewatch/kernel/spsc"
)

// RadioConfig is the receiver setup for the next expected event.
type RadioConfig struct {
	Channel uint8
	Listen  bool
}

// Command is what the link layer wants done after an event.
type Command struct {
	Radio      RadioConfig
	NextWake   kernel.Instant
	QueuedWork bool
}

// LinkLayer is the protocol state machine. It is the sole authority on
// event ordering; the bridge only forwards.
type LinkLayer interface {
	StartAdvertise(interval kernel.Duration, name string) (kernel.Instant, error)
	// HandleRadio services a radio interrupt. ok is false when the
	// interrupt carried nothing for the link layer.
	HandleRadio(now kernel.Instant) (cmd Command, ok bool)
	UpdateTimer(now kernel.Instant) Command
}

// Radio is the transceiver.
type Radio interface {
	Configure(RadioConfig)
}

// Timer is the link layer's dedicated compare timer.
type Timer interface {
	Now() kernel.Instant
	Configure(at kernel.Instant)
	Pending() bool
	Clear()
}

// Responder processes queued protocol work outside interrupt context.
type Responder interface {
	HasWork() bool
	ProcessOne() error
}

// Stack is what a platform supplies to run BLE.
type Stack struct {
	LinkLayer LinkLayer
	Radio     Radio
	Timer     Timer
	Responder Responder
	// Notify feeds battery level updates to the responder.
	Notify spsc.Producer
}

// Armer arms a task kind unless it is already pending.
type Armer interface {
	ArmIfIdle(kind kernel.TaskKind) bool
}

// Stats counts bridge activity.
type Stats struct {
	RadioEvents uint32
	TimerEvents uint32
	Arms        uint32
	Coalesced   uint32
}

// Link is the interrupt-side state shared by the radio and timer handlers.
type Link struct {
	ll    LinkLayer
	radio Radio
	timer Timer
	stats Stats
}

// NewLink bundles the interrupt-side parts of s.
func NewLink(s Stack) *Link {
	return &Link{ll: s.LinkLayer, radio: s.Radio, timer: s.Timer}
}

// Stats returns the activity counters.
func (l *Link) Stats() Stats { return l.stats }

// Advertise starts advertising name every interval and arms the link timer
// for the first event.
func (l *Link) Advertise(interval kernel.Duration, name string) error {
	next, err := l.ll.StartAdvertise(interval, name)
	if err != nil {
		return fmt.Errorf("ble: advertise %q: %w", name, err)
	}
	l.timer.Configure(next)
	return nil
}

// OnRadio services a radio interrupt.
func (l *Link) OnRadio(a Armer, worker kernel.TaskKind) {
	cmd, ok := l.ll.HandleRadio(l.timer.Now())
	if !ok {
		return
	}
	l.stats.RadioEvents++
	l.apply(a, worker, cmd)
}

// OnTimer services a link timer interrupt. It returns false when the timer
// had not fired, leaving everything untouched.
func (l *Link) OnTimer(a Armer, worker kernel.TaskKind) bool {
	if !l.timer.Pending() {
		return false
	}
	l.timer.Clear()
	l.stats.TimerEvents++
	l.apply(a, worker, l.ll.UpdateTimer(l.timer.Now()))
	return true
}

func (l *Link) apply(a Armer, worker kernel.TaskKind, cmd Command) {
	l.radio.Configure(cmd.Radio)
	l.timer.Configure(cmd.NextWake)
	if !cmd.QueuedWork {
		return
	}
	if a.ArmIfIdle(worker) {
		l.stats.Arms++
	} else {
		l.stats.Coalesced++
	}
}

// Drain processes queued work until the responder reports none left. It
// returns the number of items processed and stops at the first error.
func Drain(r Responder) (int, error) {
	n := 0
	for r.HasWork() {
		if err := r.ProcessOne(); err != nil {
			return n, fmt.Errorf("ble: responder: %w", err)
		}
		n++
	}
	return n, nil
}
