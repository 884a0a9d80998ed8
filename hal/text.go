package hal

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var textFont = &proggy.TinySZ8pt7b

const (
	fontHeight int16 = 12
	fontAscent int16 = 9
)

// TextExtent returns the box DrawText fills for s.
func TextExtent(s []byte) Point {
	_, outboxWidth := tinyfont.LineWidth(textFont, string(s))
	return Point{X: int16(outboxWidth), Y: fontHeight}
}

type fillFunc func(origin, extent Point, c Color) error

func drawText(d drivers.Displayer, fill fillFunc, origin Point, s []byte, fg, bg Color) (Point, error) {
	ext := TextExtent(s)
	if err := fill(origin, ext, bg); err != nil {
		return Point{}, err
	}
	tinyfont.WriteLine(d, textFont, origin.X, origin.Y+fontAscent, string(s), fg.ToRGBA())
	return ext, nil
}
