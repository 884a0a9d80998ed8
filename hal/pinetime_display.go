//go:build tinygo && pinetime

package hal

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/st7789"
)

const panelSize = 240

// st7789Surface drives the panel over SPI0. Images arrive little-endian and
// are swapped into a scratch buffer because the controller takes big-endian
// RGB565.
type st7789Surface struct {
	dev     st7789.Device
	scratch []byte
	inited  bool
}

func newST7789Surface() *st7789Surface {
	spi := machine.SPI0
	spi.Configure(machine.SPIConfig{
		Frequency: 8_000_000,
		SCK:       machine.SPI0_SCK_PIN,
		SDO:       machine.SPI0_SDO_PIN,
		SDI:       machine.SPI0_SDI_PIN,
		Mode:      3,
	})
	return &st7789Surface{
		dev: st7789.New(spi, machine.LCD_RESET, machine.LCD_RS, machine.LCD_CS, machine.NoPin),
	}
}

func (s *st7789Surface) Init(o Orientation) error {
	rot := drivers.Rotation0
	if o == Landscape {
		rot = drivers.Rotation90
	}
	s.dev.Configure(st7789.Config{
		Width:     panelSize,
		Height:    panelSize,
		Rotation:  rot,
		RowOffset: 80,
		FrameRate: st7789.FRAMERATE_39,
	})
	s.inited = true
	return nil
}

func (s *st7789Surface) Size() (int16, int16) { return panelSize, panelSize }

func (s *st7789Surface) FillRect(origin, extent Point, c Color) error {
	if !s.inited {
		return fmt.Errorf("lcd: not initialized")
	}
	if extent.X == 0 || extent.Y == 0 {
		return nil
	}
	return s.dev.FillRectangle(origin.X, origin.Y, extent.X, extent.Y, c.ToRGBA())
}

func (s *st7789Surface) DrawImage(origin Point, pixels []byte, w, h int16) error {
	if !s.inited {
		return fmt.Errorf("lcd: not initialized")
	}
	n := int(w) * int(h) * 2
	if w < 0 || h < 0 || len(pixels) < n {
		return fmt.Errorf("lcd: image %dx%d with %d bytes", w, h, len(pixels))
	}
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	buf := s.scratch[:n]
	for i := 0; i < n; i += 2 {
		buf[i], buf[i+1] = pixels[i+1], pixels[i]
	}
	return s.dev.DrawRGBBitmap8(origin.X, origin.Y, buf, w, h)
}

func (s *st7789Surface) DrawText(origin Point, text []byte, fg, bg Color) (Point, error) {
	if !s.inited {
		return Point{}, fmt.Errorf("lcd: not initialized")
	}
	return drawText(&s.dev, s.FillRect, origin, text, fg, bg)
}
