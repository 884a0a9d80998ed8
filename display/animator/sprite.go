package animator

import "pinewatch/hal"

var (
	shell = hal.RGB565(0xF7, 0x4C, 0x00)
	claw  = hal.RGB565(0xD0, 0x3A, 0x00)
	white = hal.White
	black = hal.Black
)

// FerrisSprite renders a crab on the background colour, SpriteW x SpriteH
// little-endian RGB565.
func FerrisSprite() []byte {
	buf := make([]byte, int(SpriteW)*int(SpriteH)*2)
	for y := int16(0); y < SpriteH; y++ {
		for x := int16(0); x < SpriteW; x++ {
			c := crabAt(x, y)
			off := (int(y)*int(SpriteW) + int(x)) * 2
			buf[off] = byte(c)
			buf[off+1] = byte(c >> 8)
		}
	}
	return buf
}

func crabAt(x, y int16) hal.Color {
	switch {
	case inEllipse(x, y, 33, 24, 4, 5):
		if inEllipse(x, y, 34, 25, 2, 2) {
			return black
		}
		return white
	case inEllipse(x, y, 53, 24, 4, 5):
		if inEllipse(x, y, 52, 25, 2, 2) {
			return black
		}
		return white
	case inEllipse(x, y, 43, 40, 34, 16):
		return shell
	case inEllipse(x, y, 9, 22, 8, 8) && !inEllipse(x, y, 5, 18, 4, 4):
		return claw
	case inEllipse(x, y, 77, 22, 8, 8) && !inEllipse(x, y, 81, 18, 4, 4):
		return claw
	case leg(x, y):
		return claw
	}
	return Background
}

func inEllipse(x, y, cx, cy, rx, ry int16) bool {
	dx, dy := int32(x-cx), int32(y-cy)
	rx2, ry2 := int32(rx)*int32(rx), int32(ry)*int32(ry)
	return dx*dx*ry2+dy*dy*rx2 <= rx2*ry2
}

// leg draws three short diagonal legs under each side of the shell.
func leg(x, y int16) bool {
	if y < 50 || y > 60 {
		return false
	}
	for _, base := range [...]int16{16, 24, 32} {
		if x == base-(y-50)/2 || x == SpriteW-1-base+(y-50)/2 {
			return true
		}
	}
	return false
}
