// Package mathx holds small integer helpers for firmware arithmetic.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit
// intermediates, clamping inputs outside the range. outMin must not exceed
// outMax.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax <= inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return uint16(uint32(outMin) + num/den)
}
