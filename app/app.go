// Package app is the watch firmware: the task table, its shared resources
// and the task bodies.
package app

import (
	"errors"
	"fmt"

	"pinewatch/ble"
	"pinewatch/display/animator"
	"pinewatch/display/backlight"
	"pinewatch/hal"
	"pinewatch/input/debounce"
	"pinewatch/internal/buildinfo"
	"pinewatch/kernel"
	"pinewatch/kernel/spsc"
	"pinewatch/power/battery"
)

// Config selects the user-visible behaviour of the firmware.
type Config struct {
	// Title is drawn in the top-left corner.
	Title string
	// BLEName is the advertised local name.
	BLEName string
	// AdvIntervalMs is the advertising interval in milliseconds.
	AdvIntervalMs uint32
	// Brightness is the backlight level at boot, 0..7.
	Brightness uint8
	// BatteryMode selects voltage or percent for the status text.
	BatteryMode battery.Mode
	// Debounce is the button debouncer depth in samples.
	Debounce int
	// BootDebug logs and draws each init step.
	BootDebug bool
}

// DefaultConfig returns the stock watch face.
func DefaultConfig() Config {
	return Config{
		Title:         "PineTime",
		BLEName:       "Rusty PineTime",
		AdvIntervalMs: 200,
		Brightness:    1,
		BatteryMode:   battery.ModeVoltage,
		Debounce:      debounce.Default,
	}
}

const margin = animator.Margin

var (
	textFg = hal.White
	textBg = animator.Background
)

type buttonState struct {
	pin hal.GPIOPin
	deb *debounce.Debouncer
}

type system struct {
	cfg Config
	log hal.Logger
	k   *kernel.Kernel

	lcd       *kernel.Resource[hal.Surface]
	ferris    *kernel.Resource[animator.Animator]
	counter   *kernel.Resource[uint32]
	button    *kernel.Resource[buttonState]
	backlight *kernel.Resource[backlight.Backlight]
	battery   *kernel.Resource[battery.Monitor]
	link      *kernel.Resource[ble.Link]
	responder *kernel.Resource[ble.Responder]
	notify    *kernel.Resource[spsc.Producer]

	ferrisPeriod  kernel.Duration
	counterPeriod kernel.Duration
	pollPeriod    kernel.Duration
	batteryPeriod kernel.Duration

	// Owned by showBattery.
	batteryW int16
}

// New initializes the firmware and starts the kernel. The returned step
// function releases due work; runners call it after servicing interrupts.
func New(h hal.HAL, cfg Config) (func() error, error) {
	s, err := newSystem(h, cfg)
	if err != nil {
		return nil, err
	}
	return s.step, nil
}

// Run starts the firmware and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL, cfg Config) {
	if _, err := New(h, cfg); err != nil {
		h.Logger().WriteLineString("init: " + err.Error())
		panic(err)
	}
	select {}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	s := &system{cfg: cfg, log: h.Logger()}
	s.logf("Initializing %s (%s)", cfg.Title, buildinfo.Short())

	counter, hz := h.Counter()
	clock := kernel.NewClock(counter, hz)
	s.ferrisPeriod = clock.PerSecond(25)
	s.counterPeriod = clock.Secs(1)
	s.pollPeriod = clock.Millis(2)
	s.batteryPeriod = clock.Secs(1)

	k, err := kernel.New(clock, s.tasks())
	if err != nil {
		return nil, err
	}
	s.k = k
	if p := h.Port(); p != nil {
		k.SetPort(p)
		p.Attach(k)
	}

	lcd := h.Display()
	if err := s.initDisplay(lcd); err != nil {
		return nil, err
	}
	s.bootStep(lcd, "backlight")
	pins := h.Backlight()
	bl, err := backlight.New(pins.Low, pins.Mid, pins.High, cfg.Brightness)
	if err != nil {
		return nil, err
	}

	s.bootStep(lcd, "battery")
	mon, err := battery.New(h.ChargeIndicator(), h.BatteryADC())
	if err != nil {
		return nil, err
	}

	s.bootStep(lcd, "bluetooth")
	stack := h.BLE(clock)
	link := ble.NewLink(stack)
	if err := link.Advertise(clock.Millis(cfg.AdvIntervalMs), cfg.BLEName); err != nil {
		return nil, err
	}
	level := [1]byte{mon.Percent()}
	stack.Notify.Push(level[:])

	s.lcd = kernel.NewResource(k, resLCD, lcd)
	s.ferris = kernel.NewResource(k, resFerris, *animator.New(animator.FerrisSprite(), 240, 10, 80, 2))
	s.counter = kernel.NewResource(k, resCounter, uint32(0))
	s.button = kernel.NewResource(k, resButton, buttonState{pin: h.Button(), deb: debounce.New(cfg.Debounce)})
	s.backlight = kernel.NewResource(k, resBacklight, *bl)
	s.battery = kernel.NewResource(k, resBattery, *mon)
	s.link = kernel.NewResource(k, resLink, *link)
	s.responder = kernel.NewResource(k, resResponder, stack.Responder)
	s.notify = kernel.NewResource(k, resNotify, stack.Notify)

	s.bootStep(lcd, "interrupts")
	if err := s.bind(h.IRQs(), hal.IRQRadio, taskRadio); err != nil {
		return nil, err
	}
	if err := s.bind(h.IRQs(), hal.IRQBleTimer, taskBleTimer); err != nil {
		return nil, err
	}

	installPanicHandler(h)

	for _, kind := range []kernel.TaskKind{taskWriteCounter, taskWriteFerris, taskPollButton, taskShowBattery, taskUpdateBattery} {
		k.Spawn(kind)
	}
	s.bootStep(lcd, "start")
	k.Start()
	return s, nil
}

func (s *system) initDisplay(lcd hal.Surface) error {
	if err := lcd.Init(hal.Portrait); err != nil {
		return fmt.Errorf("lcd: init: %w", err)
	}
	w, h := lcd.Size()
	if err := lcd.FillRect(hal.Point{}, hal.Point{X: w, Y: h}, textBg); err != nil {
		return fmt.Errorf("lcd: clear: %w", err)
	}
	if _, err := lcd.DrawText(hal.Point{X: margin, Y: margin}, []byte(s.cfg.Title), textFg, textBg); err != nil {
		return fmt.Errorf("lcd: title: %w", err)
	}
	return nil
}

// bind routes line to the bound task kind. Lines the platform does not own
// are serviced elsewhere and only logged.
func (s *system) bind(irqs hal.IRQs, line hal.IRQLine, kind kernel.TaskKind) error {
	err := irqs.Bind(line, func() { s.k.Raise(kind) })
	if errors.Is(err, hal.ErrNotImplemented) {
		s.logf("irq: %s not routed", line)
		return nil
	}
	return err
}

func (s *system) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("app: %v", r)
		}
	}()
	s.k.Poll()
	return nil
}

func (s *system) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString(fmt.Sprintf(format, args...))
}

func (s *system) bootStep(lcd hal.Surface, msg string) {
	if !s.cfg.BootDebug {
		return
	}
	s.logf("boot: %s", msg)
	origin := hal.Point{X: margin, Y: margin + 2*hal.TextExtent(nil).Y}
	lcd.DrawText(origin, []byte("boot: "+msg+"      "), textFg, textBg)
}
