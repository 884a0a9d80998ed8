// Package simlink is a deterministic link layer for host builds. It
// advertises on the link timer, lets a simulated central connect after a
// few advertising events and then issues one battery level read per
// connection event through the radio interrupt.
package simlink

import (
	"errors"

	"pinewatch/ble"
	"pinewatch/kernel"
	"pinewatch/kernel/spsc"
)

const (
	maxNameLen = 29

	// ATT opcodes.
	opError     = 0x01
	opReadReq   = 0x0A
	opReadRsp   = 0x0B
	opNotify    = 0x1B
	errNotFound = 0x0A

	// BatteryLevelHandle is the attribute handle of the battery level value.
	BatteryLevelHandle = 0x0003

	dataChannel = 5
	ifs         = 150 // inter-frame space, µs
)

var (
	ErrNameTooLong = errors.New("simlink: advertising name too long")
	ErrTxFull      = errors.New("simlink: tx queue full")
)

// Config tunes the simulated central.
type Config struct {
	// ConnectAfter is the number of advertising events before the central
	// connects. Zero never connects.
	ConnectAfter uint32
	// ConnInterval is the connection event period in ticks.
	ConnInterval kernel.Duration
	// Slots is the depth of each packet ring.
	Slots int
}

// DefaultConfig connects after five advertising events with a 50 ms
// connection interval on a 1 MHz counter.
func DefaultConfig() Config {
	return Config{ConnectAfter: 5, ConnInterval: 50_000, Slots: 8}
}

// Stats counts simulated traffic.
type Stats struct {
	AdvEvents     uint32
	ConnEvents    uint32
	Requests      uint32
	Sent          uint32
	Notifications uint32
	Dropped       uint32
}

// Sim is the simulated link layer. Its radio, timer and responder views are
// handed out through the ble.Stack returned by New.
type Sim struct {
	clock kernel.Clock
	cfg   Config

	name        string
	interval    kernel.Duration
	advertising bool
	connected   bool

	timerAt    kernel.Instant
	timerArmed bool
	radioAt    kernel.Instant
	radioArmed bool
	radioCfg   ble.RadioConfig

	rxP     spsc.Producer
	rxC     spsc.Consumer
	txP     spsc.Producer
	txC     spsc.Consumer
	notifyC spsc.Consumer

	level uint8
	stats Stats

	irqBuf  [spsc.PacketSize]byte
	workBuf [spsc.PacketSize]byte
	out     [spsc.PacketSize]byte
}

// New returns a simulator and the stack view of it.
func New(clock kernel.Clock, cfg Config) (*Sim, ble.Stack) {
	if cfg.Slots == 0 {
		cfg.Slots = DefaultConfig().Slots
	}
	if cfg.ConnInterval == 0 {
		cfg.ConnInterval = DefaultConfig().ConnInterval
	}
	s := &Sim{clock: clock, cfg: cfg}
	s.rxP, s.rxC = spsc.New(cfg.Slots).Split()
	s.txP, s.txC = spsc.New(cfg.Slots).Split()
	notifyP, notifyC := spsc.New(cfg.Slots).Split()
	s.notifyC = notifyC

	return s, ble.Stack{
		LinkLayer: s,
		Radio:     (*radio)(s),
		Timer:     (*timer)(s),
		Responder: (*responder)(s),
		Notify:    notifyP,
	}
}

// Name returns the advertised name.
func (s *Sim) Name() string { return s.name }

// Connected reports whether the simulated central is connected.
func (s *Sim) Connected() bool { return s.connected }

// Level returns the last battery level the responder published.
func (s *Sim) Level() uint8 { return s.level }

// Stats returns traffic counters.
func (s *Sim) Stats() Stats { return s.stats }

// RadioConfig returns the last receiver configuration.
func (s *Sim) RadioConfig() ble.RadioConfig { return s.radioCfg }

// TimerDue reports whether the link timer interrupt would fire at now.
func (s *Sim) TimerDue(now kernel.Instant) bool {
	return s.timerArmed && !now.Before(s.timerAt)
}

// RadioDue reports whether the radio interrupt would fire at now.
func (s *Sim) RadioDue(now kernel.Instant) bool {
	return s.radioArmed && s.radioCfg.Listen && !now.Before(s.radioAt)
}

func (s *Sim) StartAdvertise(interval kernel.Duration, name string) (kernel.Instant, error) {
	if len(name) > maxNameLen {
		return 0, ErrNameTooLong
	}
	s.name = name
	s.interval = interval
	s.advertising = true
	return s.clock.Now().Add(interval), nil
}

func (s *Sim) UpdateTimer(now kernel.Instant) ble.Command {
	if !s.advertising {
		return ble.Command{NextWake: now.Add(s.cfg.ConnInterval)}
	}
	if !s.connected {
		s.stats.AdvEvents++
		cmd := ble.Command{
			Radio:    ble.RadioConfig{Channel: 37 + uint8(s.stats.AdvEvents%3), Listen: true},
			NextWake: now.Add(s.interval),
		}
		if s.cfg.ConnectAfter > 0 && s.stats.AdvEvents >= s.cfg.ConnectAfter {
			s.connected = true
			cmd.NextWake = now.Add(s.cfg.ConnInterval)
		}
		return cmd
	}

	s.stats.ConnEvents++
	s.radioArmed = true
	s.radioAt = now.Add(ifs)
	return ble.Command{
		Radio:      ble.RadioConfig{Channel: dataChannel, Listen: true},
		NextWake:   now.Add(s.cfg.ConnInterval),
		QueuedWork: s.hasWork(),
	}
}

func (s *Sim) HandleRadio(now kernel.Instant) (ble.Command, bool) {
	if !s.RadioDue(now) {
		return ble.Command{}, false
	}
	s.radioArmed = false

	for {
		if _, ok := s.txC.Pop(s.irqBuf[:]); !ok {
			break
		}
		s.stats.Sent++
	}
	req := [3]byte{opReadReq, BatteryLevelHandle & 0xFF, BatteryLevelHandle >> 8}
	if s.rxP.Push(req[:]) {
		s.stats.Requests++
	} else {
		s.stats.Dropped++
	}

	return ble.Command{
		Radio:      ble.RadioConfig{Channel: dataChannel},
		NextWake:   s.timerAt,
		QueuedWork: s.hasWork(),
	}, true
}

func (s *Sim) hasWork() bool {
	return s.rxC.Len() > 0 || s.notifyC.Len() > 0
}

type radio Sim

func (r *radio) Configure(cfg ble.RadioConfig) { r.radioCfg = cfg }

type timer Sim

func (t *timer) Now() kernel.Instant { return t.clock.Now() }

func (t *timer) Configure(at kernel.Instant) {
	t.timerAt = at
	t.timerArmed = true
}

func (t *timer) Pending() bool { return (*Sim)(t).TimerDue(t.clock.Now()) }

func (t *timer) Clear() { t.timerArmed = false }

type responder Sim

func (r *responder) HasWork() bool { return (*Sim)(r).hasWork() }

// ProcessOne publishes a pending battery level first, then answers one
// request from the central.
func (r *responder) ProcessOne() error {
	if pk, ok := r.notifyC.Peek(); ok {
		if pk.Len > 0 {
			r.level = pk.Data[0]
		}
		r.notifyC.Pop(nil)
		if !r.connected {
			return nil
		}
		ntf := [4]byte{opNotify, BatteryLevelHandle & 0xFF, BatteryLevelHandle >> 8, r.level}
		if r.txP.Push(ntf[:]) {
			r.stats.Notifications++
		} else {
			r.stats.Dropped++
		}
		return nil
	}

	n, ok := r.rxC.Pop(r.workBuf[:])
	if !ok {
		return nil
	}
	req := r.workBuf[:n]
	rsp := r.out[:0]
	switch {
	case n == 3 && req[0] == opReadReq && req[1] == BatteryLevelHandle&0xFF && req[2] == BatteryLevelHandle>>8:
		rsp = append(rsp, opReadRsp, r.level)
	case n >= 3:
		rsp = append(rsp, opError, req[0], req[1], req[2], errNotFound)
	default:
		rsp = append(rsp, opError, 0, 0, 0, errNotFound)
	}
	if !r.txP.Push(rsp) {
		return ErrTxFull
	}
	return nil
}
