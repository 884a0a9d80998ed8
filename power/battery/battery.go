// Package battery tracks the charge indicator and battery voltage.
package battery

import (
	"fmt"
	"strconv"

	"pinewatch/x/mathx"
)

// Pin is the charge indication input. It reads low while charging.
type Pin interface {
	Read() (bool, error)
}

// ADC samples the battery voltage divider.
type ADC interface {
	Read() (int16, error)
}

// Mode selects how the status is rendered.
type Mode uint8

const (
	ModeVoltage Mode = iota
	ModePercent
)

// ParseMode accepts "voltage" or "percent".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "voltage", "v":
		return ModeVoltage, nil
	case "percent", "%":
		return ModePercent, nil
	}
	return 0, fmt.Errorf("battery: unknown mode %q", s)
}

func (m Mode) String() string {
	if m == ModePercent {
		return "percent"
	}
	return "voltage"
}

// Li-ion discharge curve, millivolts to percent.
var (
	curveMV  = [...]uint16{3500, 3600, 3700, 3750, 3900, 4180}
	curvePct = [...]uint16{0, 10, 25, 50, 75, 100}
)

// Monitor caches the last sampled battery state.
type Monitor struct {
	charge Pin
	adc    ADC

	charging bool
	mv       uint16
	voltage  uint8
}

// New takes an initial reading.
func New(charge Pin, adc ADC) (*Monitor, error) {
	m := &Monitor{charge: charge, adc: adc}
	if _, err := m.Update(); err != nil {
		return nil, err
	}
	return m, nil
}

// ConvertADC converts a raw 14-bit SAADC code into 0.1 V units. Negative
// codes are out of range and degrade to 0.
func ConvertADC(raw int16) uint8 {
	return uint8(millivolts(raw) / 100)
}

func millivolts(raw int16) uint16 {
	if raw < 0 {
		return 0
	}
	// Divider halves the battery voltage; 2^14 codes span 3.3 V.
	return uint16(uint32(raw) * 2000 / 4965)
}

// Update samples the hardware and reports whether the charging state or
// the 0.1 V reading changed. On a pin or ADC error the cached state is left
// untouched.
func (m *Monitor) Update() (bool, error) {
	level, err := m.charge.Read()
	if err != nil {
		return false, fmt.Errorf("battery: charge pin: %w", err)
	}
	raw, err := m.adc.Read()
	if err != nil {
		return false, fmt.Errorf("battery: adc: %w", err)
	}

	charging := !level
	mv := millivolts(raw)
	voltage := uint8(mv / 100)

	changed := charging != m.charging || voltage != m.voltage
	m.charging, m.mv, m.voltage = charging, mv, voltage
	return changed, nil
}

// Charging reports the cached charging state.
func (m *Monitor) Charging() bool { return m.charging }

// Voltage returns the cached voltage in 0.1 V units.
func (m *Monitor) Voltage() uint8 { return m.voltage }

// Millivolts returns the cached voltage in millivolts.
func (m *Monitor) Millivolts() uint16 { return m.mv }

// Percent approximates the state of charge from the discharge curve.
func (m *Monitor) Percent() uint8 { return Percent(m.mv) }

// Percent maps a battery voltage in millivolts onto the discharge curve.
func Percent(mv uint16) uint8 {
	if mv <= curveMV[0] {
		return uint8(curvePct[0])
	}
	for i := 1; i < len(curveMV); i++ {
		if mv < curveMV[i] {
			return uint8(mathx.MapU16(mv, curveMV[i-1], curveMV[i], curvePct[i-1], curvePct[i]))
		}
	}
	return uint8(curvePct[len(curvePct)-1])
}

// AppendVoltage appends the status as "3.7V/C" (charging) or "3.7V/D".
func AppendVoltage(dst []byte, voltage uint8, charging bool) []byte {
	dst = strconv.AppendUint(dst, uint64(voltage/10), 10)
	dst = append(dst, '.')
	dst = strconv.AppendUint(dst, uint64(voltage%10), 10)
	dst = append(dst, 'V', '/')
	if charging {
		return append(dst, 'C')
	}
	return append(dst, 'D')
}

// AppendPercent appends the status as "37%", or "37%+" while charging.
func AppendPercent(dst []byte, percent uint8, charging bool) []byte {
	dst = strconv.AppendUint(dst, uint64(percent), 10)
	dst = append(dst, '%')
	if charging {
		dst = append(dst, '+')
	}
	return dst
}

// Append renders the cached status in mode m.
func (m *Monitor) Append(dst []byte, mode Mode) []byte {
	if mode == ModePercent {
		return AppendPercent(dst, m.Percent(), m.charging)
	}
	return AppendVoltage(dst, m.voltage, m.charging)
}
