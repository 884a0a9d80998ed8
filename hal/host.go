//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"pinewatch/ble"
	"pinewatch/ble/simlink"
	"pinewatch/kernel"
)

// HostConfig sets up the simulated watch.
type HostConfig struct {
	// CounterOffset is the initial counter value.
	CounterOffset uint32
	// ADC is the initial raw battery code.
	ADC int16
	// Charging starts with the charge indicator asserted.
	Charging bool
	// PulseButton presses the button periodically, for runs without a
	// keyboard.
	PulseButton bool
	// Link tunes the simulated central.
	Link simlink.Config
	// Quiet suppresses pin change logging.
	Quiet bool
}

// DefaultHostConfig returns a 3.8 V discharging battery and a central that
// connects after five advertising events.
func DefaultHostConfig() HostConfig {
	return HostConfig{ADC: 9434, Link: simlink.DefaultConfig()}
}

type hostHAL struct {
	cfg     HostConfig
	logger  *hostLogger
	fb      *hostFramebuffer
	kbd     *hostKeyboard
	counter *hostCounter
	button  GPIOPin
	charge  *virtualPin
	adc     *hostADC
	light   [3]*virtualPin
	irqs    *hostIRQs
	sim     *simlink.Sim
}

// New returns a host HAL implementation.
func New(cfg HostConfig) HAL {
	return newHost(cfg)
}

func newHost(cfg HostConfig) *hostHAL {
	logger := &hostLogger{w: os.Stdout}
	h := &hostHAL{
		cfg:     cfg,
		logger:  logger,
		fb:      newHostFramebuffer(240, 240),
		kbd:     newHostKeyboard(),
		counter: newHostCounter(cfg.CounterOffset),
		charge:  newVirtualPin("CHARGE_INDICATION", GPIOModeInput, !cfg.Charging),
		adc:     &hostADC{raw: cfg.ADC},
		irqs:    &hostIRQs{},
	}
	if cfg.PulseButton {
		h.button = newSignalPin("BUTTON", 3*time.Second, 100*time.Millisecond)
	} else {
		h.button = newVirtualPin("BUTTON", GPIOModeInput, false)
	}
	for i, name := range []string{"LCD_BACKLIGHT_LOW", "LCD_BACKLIGHT_MID", "LCD_BACKLIGHT_HIGH"} {
		p := newVirtualPin(name, GPIOModeOutput, true)
		if !cfg.Quiet {
			p.log = logger
		}
		h.light[i] = p
	}
	return h
}

func (h *hostHAL) Logger() Logger           { return h.logger }
func (h *hostHAL) Display() Surface         { return h.fb }
func (h *hostHAL) Button() GPIOPin          { return h.button }
func (h *hostHAL) ChargeIndicator() GPIOPin { return h.charge }
func (h *hostHAL) BatteryADC() ADC          { return h.adc }
func (h *hostHAL) Port() Port               { return nil }
func (h *hostHAL) IRQs() IRQs               { return h.irqs }
func (h *hostHAL) Counter() (kernel.Counter, uint32) {
	return h.counter, CounterHz
}

func (h *hostHAL) Backlight() Backlight {
	return Backlight{Low: h.light[0], Mid: h.light[1], High: h.light[2]}
}

func (h *hostHAL) BLE(clock kernel.Clock) ble.Stack {
	sim, stack := simlink.New(clock, h.cfg.Link)
	h.sim = sim
	h.irqs.sim = sim
	return stack
}

// backlightLevel decodes the active-low FET gates.
func (h *hostHAL) backlightLevel() int {
	level := 0
	for i, p := range h.light {
		if on, _ := p.Read(); !on {
			level |= 1 << i
		}
	}
	return level
}

// pollIRQs fires bound handlers whose simulated interrupt condition holds.
func (h *hostHAL) pollIRQs() {
	h.irqs.poll(kernel.Instant(h.counter.Now()))
}

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostADC struct {
	mu  sync.Mutex
	raw int16
}

func (a *hostADC) Read() (int16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw, nil
}

func (a *hostADC) add(d int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raw += d
}

type hostIRQs struct {
	handlers [2]func()
	sim      *simlink.Sim
}

func (q *hostIRQs) Bind(line IRQLine, fn func()) error {
	if int(line) >= len(q.handlers) {
		return fmt.Errorf("irq: line %s: %w", line, ErrNotImplemented)
	}
	q.handlers[line] = fn
	return nil
}

func (q *hostIRQs) poll(now kernel.Instant) {
	if q.sim == nil {
		return
	}
	if fn := q.handlers[IRQBleTimer]; fn != nil && q.sim.TimerDue(now) {
		fn()
	}
	if fn := q.handlers[IRQRadio]; fn != nil && q.sim.RadioDue(now) {
		fn()
	}
}
