//go:build !tinygo

// Command mksprite writes the bouncing sprite as raw little-endian RGB565,
// the layout the panel driver consumes, with an optional PNG preview.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"pinewatch/display/animator"
	"pinewatch/hal"
)

const defaultRawPath = "ferris.raw"

func main() {
	var outPath string
	var pngPath string
	var scale int
	flag.StringVar(&outPath, "out", defaultRawPath, "Output raw RGB565 path.")
	flag.StringVar(&pngPath, "png", "", "Optional PNG preview path.")
	flag.IntVar(&scale, "scale", 1, "PNG preview scale factor.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if scale < 1 {
		fmt.Fprintln(os.Stderr, "error: -scale must be at least 1")
		os.Exit(2)
	}

	if err := run(outPath, pngPath, scale); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(outPath, pngPath string, scale int) error {
	px := animator.FerrisSprite()
	if err := os.WriteFile(outPath, px, 0o644); err != nil {
		return fmt.Errorf("write raw %q: %w", outPath, err)
	}
	if pngPath == "" {
		return nil
	}

	f, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("create png %q: %w", pngPath, err)
	}
	if err := png.Encode(f, preview(px, scale)); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png %q: %w", pngPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png %q: %w", pngPath, err)
	}
	return nil
}

func preview(px []byte, scale int) *image.RGBA {
	w, h := int(animator.SpriteW), int(animator.SpriteH)
	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			off := ((y/scale)*w + x/scale) * 2
			c := hal.Color(uint16(px[off]) | uint16(px[off+1])<<8)
			img.SetRGBA(x, y, c.ToRGBA())
		}
	}
	return img
}
