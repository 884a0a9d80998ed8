package hal

import (
	"errors"

	"pinewatch/ble"
	"pinewatch/kernel"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// Point is a pixel position or extent.
type Point struct {
	X, Y int16
}

// Orientation is the panel scan direction.
type Orientation uint8

const (
	Portrait Orientation = iota
	Landscape
)

// Surface is the LCD as seen by tasks. Pixels are RGB565; image data is
// little-endian, two bytes per pixel, row-major.
type Surface interface {
	Init(o Orientation) error
	Size() (w, h int16)
	FillRect(origin, extent Point, c Color) error
	DrawImage(origin Point, pixels []byte, w, h int16) error
	// DrawText renders s with its top-left corner at origin on a bg box
	// and returns the box extent.
	DrawText(origin Point, s []byte, fg, bg Color) (Point, error)
}

// ADC is a single-channel one-shot converter.
type ADC interface {
	Read() (int16, error)
}

// IRQLine identifies a hardware interrupt routed to a bound task.
type IRQLine uint8

const (
	IRQRadio IRQLine = iota
	IRQBleTimer
)

func (l IRQLine) String() string {
	switch l {
	case IRQRadio:
		return "RADIO"
	case IRQBleTimer:
		return "TIMER2"
	default:
		return "IRQ?"
	}
}

// IRQs routes hardware interrupt lines to handlers.
type IRQs interface {
	// Bind installs fn for line. It returns ErrNotImplemented when the
	// platform does not own that line.
	Bind(line IRQLine, fn func()) error
}

// Port is the interrupt controller binding of a board. It needs the kernel
// to call back into from its interrupt handlers.
type Port interface {
	kernel.Port
	Attach(k *kernel.Kernel)
}

// Backlight is the three FET gates, lowest current first.
type Backlight struct {
	Low, Mid, High GPIOPin
}

// HAL provides the only contact point between the firmware and the outside world.
type HAL interface {
	Logger() Logger
	Display() Surface
	Button() GPIOPin
	ChargeIndicator() GPIOPin
	BatteryADC() ADC
	Backlight() Backlight
	// Counter is the free-running 32-bit time base and its rate in Hz.
	Counter() (kernel.Counter, uint32)
	// Port is the interrupt controller binding. Nil selects inline dispatch.
	Port() Port
	IRQs() IRQs
	BLE(clock kernel.Clock) ble.Stack
}
