package hal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Configure(mode GPIOMode) error
	Read() (level bool, err error)
	Write(level bool) error
}

// virtualPin is a host pin. Inputs are driven from outside with Set.
type virtualPin struct {
	mu    sync.Mutex
	name  string
	mode  GPIOMode
	level bool
	log   Logger
}

func newVirtualPin(name string, mode GPIOMode, level bool) *virtualPin {
	return &virtualPin{name: name, mode: mode, level: level}
}

func (p *virtualPin) Name() string { return p.name }

func (p *virtualPin) Configure(mode GPIOMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mode != GPIOModeInput && mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: invalid mode %d", p.name, mode)
	}
	p.mode = mode
	return nil
}

func (p *virtualPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *virtualPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	if p.log != nil && p.level != level {
		p.log.WriteLineString(fmt.Sprintf("gpio: %s=%d", p.name, b2i(level)))
	}
	p.level = level
	return nil
}

// Set drives an input pin from outside.
func (p *virtualPin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

// Toggle inverts the pin level.
func (p *virtualPin) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = !p.level
}

// signalPin is a periodic input: high for the first part of every period.
type signalPin struct {
	mu   sync.Mutex
	name string

	t0     time.Time
	now    func() time.Time
	period time.Duration
	high   time.Duration
}

func newSignalPin(name string, period, high time.Duration) GPIOPin {
	return newSignalPinWithClock(name, period, high, time.Now)
}

func newSignalPinWithClock(name string, period, high time.Duration, now func() time.Time) GPIOPin {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = 1 * time.Second
	}
	if high < 0 {
		high = 0
	}
	if high > period {
		high = period
	}
	return &signalPin{
		name:   name,
		t0:     now(),
		now:    now,
		period: period,
		high:   high,
	}
}

func (p *signalPin) Name() string { return p.name }

func (p *signalPin) Configure(mode GPIOMode) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	return nil
}

func (p *signalPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.t0)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	phase := elapsed % p.period
	return phase < p.high, nil
}

func (p *signalPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
