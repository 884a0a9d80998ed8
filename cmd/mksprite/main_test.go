//go:build !tinygo

package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pinewatch/display/animator"
)

func TestRunWritesRawAndPreview(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "ferris.raw")
	prev := filepath.Join(dir, "ferris.png")

	if err := run(raw, prev, 2); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	b, err := os.ReadFile(raw)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if want := int(animator.SpriteW) * int(animator.SpriteH) * 2; len(b) != want {
		t.Fatalf("raw size = %d, want %d", len(b), want)
	}

	f, err := os.Open(prev)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 2*int(animator.SpriteW) {
		t.Fatalf("preview width = %d, want %d", got, 2*int(animator.SpriteW))
	}
}

func TestRunBadPath(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "missing", "ferris.raw"), "", 1); err == nil {
		t.Fatalf("run() error = nil, want error")
	}
}
