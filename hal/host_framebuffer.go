//go:build !tinygo

package hal

import (
	"fmt"
	"image/color"
	"sync"
)

// hostFramebuffer is an RGB565 little-endian pixel buffer standing in for
// the panel. It also implements drivers.Displayer for text rendering.
type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte
	orient Orientation
	inited bool
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Init(o Orientation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orient = o
	f.inited = true
	return nil
}

func (f *hostFramebuffer) Size() (int16, int16) { return int16(f.width), int16(f.height) }
func (f *hostFramebuffer) Display() error        { return nil }

func (f *hostFramebuffer) SetPixel(x, y int16, c color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(int(x), int(y), from888(c))
}

func (f *hostFramebuffer) put(x, y int, c Color) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	off := y*f.stride + x*2
	f.buf[off] = byte(c)
	f.buf[off+1] = byte(c >> 8)
}

func (f *hostFramebuffer) FillRect(origin, extent Point, c Color) error {
	if extent.X < 0 || extent.Y < 0 {
		return fmt.Errorf("lcd: negative extent %v", extent)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inited {
		return fmt.Errorf("lcd: not initialized")
	}
	for y := int(origin.Y); y < int(origin.Y)+int(extent.Y); y++ {
		for x := int(origin.X); x < int(origin.X)+int(extent.X); x++ {
			f.put(x, y, c)
		}
	}
	return nil
}

func (f *hostFramebuffer) DrawImage(origin Point, pixels []byte, w, h int16) error {
	if w < 0 || h < 0 || len(pixels) < int(w)*int(h)*2 {
		return fmt.Errorf("lcd: image %dx%d with %d bytes", w, h, len(pixels))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inited {
		return fmt.Errorf("lcd: not initialized")
	}
	for row := 0; row < int(h); row++ {
		for col := 0; col < int(w); col++ {
			i := (row*int(w) + col) * 2
			f.put(int(origin.X)+col, int(origin.Y)+row, Color(pixels[i])|Color(pixels[i+1])<<8)
		}
	}
	return nil
}

func (f *hostFramebuffer) DrawText(origin Point, s []byte, fg, bg Color) (Point, error) {
	return drawText(f, f.FillRect, origin, s, fg, bg)
}

// At returns the pixel at (x, y). Out of range reads return 0.
func (f *hostFramebuffer) At(x, y int) Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0
	}
	off := y*f.stride + x*2
	return Color(f.buf[off]) | Color(f.buf[off+1])<<8
}

func (f *hostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}
