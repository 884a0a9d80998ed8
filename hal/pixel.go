package hal

import "image/color"

// Color is an RGB565 pixel: rrrrrggggggbbbbb.
type Color uint16

// RGB565 packs 8-bit channels.
func RGB565(r, g, b uint8) Color {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return Color((rr << 11) | (gg << 5) | bb)
}

// Raw565 builds a color from 5/6/5-bit channel values.
func Raw565(r, g, b uint8) Color {
	return Color(uint16(r&0x1F)<<11 | uint16(g&0x3F)<<5 | uint16(b&0x1F))
}

var (
	Black = Color(0x0000)
	White = Color(0xFFFF)
)

func rgb888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// ToRGBA expands c for drivers that take image/color values.
func (c Color) ToRGBA() color.RGBA {
	r, g, b := rgb888From565(uint16(c))
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func from888(c color.RGBA) Color { return RGB565(c.R, c.G, c.B) }
