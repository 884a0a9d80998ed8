//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// hostKeyboard maps keys onto the simulated peripherals:
// space holds the button, C toggles the charger, arrow keys move the
// battery ADC code.
type hostKeyboard struct{}

func newHostKeyboard() *hostKeyboard { return &hostKeyboard{} }

func (k *hostKeyboard) poll(h *hostHAL) {
	if p, ok := h.button.(*virtualPin); ok {
		p.Set(ebiten.IsKeyPressed(ebiten.KeySpace))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		h.charge.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		h.adc.add(100)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		h.adc.add(-100)
	}
}
