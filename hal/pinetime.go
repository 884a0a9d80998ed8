//go:build tinygo && pinetime

package hal

import (
	"machine"

	"pinewatch/ble"
	"pinewatch/kernel"
)

// PineTime wiring (nRF52832):
//
//	P0.13  push button input, P0.15 drives the button high side
//	P0.12  charge indication, active low
//	P0.31  battery voltage through a 1:2 divider (AIN7)
//	P0.14/P0.22/P0.23  backlight low/mid/high, active low
//	SPI0   ST7789 240x240 panel
//
// TIMER1 is the kernel time base, TIMER2 the link timer. The SoftDevice
// owns RADIO and TIMER0.
const (
	pinButton     = machine.Pin(13)
	pinButtonOut  = machine.Pin(15)
	pinCharge     = machine.Pin(12)
	pinBattery    = machine.Pin(31)
	pinBacklightL = machine.Pin(14)
	pinBacklightM = machine.Pin(22)
	pinBacklightH = machine.Pin(23)
)

type pinetimeHAL struct {
	logger  *serialLogger
	display *st7789Surface
	button  *boardPin
	charge  *boardPin
	adc     *boardADC
	light   Backlight
	port    *swiPort
	irqs    *boardIRQs
}

// New returns the PineTime HAL.
func New() HAL {
	pinButtonOut.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinButtonOut.High()

	machine.InitADC()
	adc := machine.ADC{Pin: pinBattery}
	adc.Configure(machine.ADCConfig{Reference: 3000, SampleTime: 40, Samples: 1})

	h := &pinetimeHAL{
		logger:  &serialLogger{},
		display: newST7789Surface(),
		button:  newBoardPin("BUTTON", pinButton, GPIOModeInput),
		charge:  newBoardPin("CHARGE_INDICATION", pinCharge, GPIOModeInput),
		adc:     &boardADC{adc: adc},
		light: Backlight{
			Low:  newBoardPin("LCD_BACKLIGHT_LOW", pinBacklightL, GPIOModeOutput),
			Mid:  newBoardPin("LCD_BACKLIGHT_MID", pinBacklightM, GPIOModeOutput),
			High: newBoardPin("LCD_BACKLIGHT_HIGH", pinBacklightH, GPIOModeOutput),
		},
		port: newSWIPort(),
		irqs: &boardIRQs{},
	}
	return h
}

func (h *pinetimeHAL) Logger() Logger           { return h.logger }
func (h *pinetimeHAL) Display() Surface         { return h.display }
func (h *pinetimeHAL) Button() GPIOPin          { return h.button }
func (h *pinetimeHAL) ChargeIndicator() GPIOPin { return h.charge }
func (h *pinetimeHAL) BatteryADC() ADC          { return h.adc }
func (h *pinetimeHAL) Backlight() Backlight     { return h.light }
func (h *pinetimeHAL) Port() Port               { return h.port }
func (h *pinetimeHAL) IRQs() IRQs               { return h.irqs }
func (h *pinetimeHAL) Counter() (kernel.Counter, uint32) {
	return timer1Counter{}, CounterHz
}

func (h *pinetimeHAL) BLE(clock kernel.Clock) ble.Stack {
	return newSoftDeviceStack(clock)
}

type serialLogger struct{}

func (l *serialLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		machine.Serial.WriteByte(s[i])
	}
	machine.Serial.WriteByte('\r')
	machine.Serial.WriteByte('\n')
}

func (l *serialLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		machine.Serial.WriteByte(b[i])
	}
	machine.Serial.WriteByte('\r')
	machine.Serial.WriteByte('\n')
}

type boardPin struct {
	name string
	pin  machine.Pin
	mode GPIOMode
}

func newBoardPin(name string, pin machine.Pin, mode GPIOMode) *boardPin {
	p := &boardPin{name: name, pin: pin}
	p.Configure(mode)
	if mode == GPIOModeOutput {
		pin.High()
	}
	return p
}

func (p *boardPin) Name() string { return p.name }

func (p *boardPin) Configure(mode GPIOMode) error {
	switch mode {
	case GPIOModeInput:
		p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	case GPIOModeOutput:
		p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	default:
		return ErrNotImplemented
	}
	p.mode = mode
	return nil
}

func (p *boardPin) Read() (bool, error) { return p.pin.Get(), nil }

func (p *boardPin) Write(level bool) error {
	if p.mode != GPIOModeOutput {
		return ErrNotImplemented
	}
	p.pin.Set(level)
	return nil
}

// boardADC rescales the 16-bit reading against the 3.0 V reference to the
// 14-bit 3.3 V code the battery conversion expects.
type boardADC struct {
	adc machine.ADC
}

func (a *boardADC) Read() (int16, error) {
	v := uint32(a.adc.Get())
	return int16(v * 3000 / (4 * 3300)), nil
}
