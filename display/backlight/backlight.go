// Package backlight drives the three active-low backlight FETs.
//
// Each FET switches the LED supply through a different resistor (2.2 kΩ,
// 100 Ω, 30 Ω). Bit i of the level selects FET i, giving seven brightness
// steps plus off.
package backlight

import (
	"errors"
	"fmt"

	"pinewatch/x/mathx"
)

// Max is the brightest level.
const Max uint8 = 7

// ErrAtMinimum is returned by Darker when the backlight is already off.
var ErrAtMinimum = errors.New("backlight: already at minimum")

// Pin is one FET gate output.
type Pin interface {
	Write(high bool) error
}

// Backlight holds the current level and the three gate pins.
type Backlight struct {
	pins  [3]Pin
	level uint8
}

// New drives the pins for the initial level.
func New(low, mid, high Pin, level uint8) (*Backlight, error) {
	b := &Backlight{pins: [3]Pin{low, mid, high}}
	if err := b.Set(level); err != nil {
		return nil, err
	}
	return b, nil
}

// Level returns the current level, 0 (off) to Max.
func (b *Backlight) Level() uint8 { return b.level }

// Pattern returns the logical on/off state of the low, mid and high FETs.
func (b *Backlight) Pattern() [3]bool { return Pattern(b.level) }

// Set changes the level. Values above Max are clamped.
func (b *Backlight) Set(level uint8) error {
	level = mathx.Clamp(level, 0, Max)
	for i, on := range Pattern(level) {
		// Active low: driving the gate low turns the FET on.
		if err := b.pins[i].Write(!on); err != nil {
			return fmt.Errorf("backlight: pin %d: %w", i, err)
		}
	}
	b.level = level
	return nil
}

// Pattern returns the FET states for level.
func Pattern(level uint8) [3]bool {
	return [3]bool{level&1 != 0, level&2 != 0, level&4 != 0}
}

// Brighter steps up one level. At Max it stays at Max.
func (b *Backlight) Brighter() error {
	return b.Set(b.level + 1)
}

// Darker steps down one level.
func (b *Backlight) Darker() error {
	if b.level == 0 {
		return ErrAtMinimum
	}
	return b.Set(b.level - 1)
}

// Off turns the backlight off.
func (b *Backlight) Off() error { return b.Set(0) }
