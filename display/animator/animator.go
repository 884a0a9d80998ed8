// Package animator bounces a sprite across the screen, erasing only the
// strip it leaves behind on each tick.
package animator

import (
	"fmt"

	"pinewatch/hal"
)

const (
	// SpriteW and SpriteH are the sprite dimensions in pixels.
	SpriteW int16 = 86
	SpriteH int16 = 64

	// Margin is the horizontal distance kept from either canvas edge.
	Margin int16 = 10
)

// Background is the screen fill colour behind the sprite.
var Background = hal.Raw565(0, 7, 0)

// Canvas is the part of the LCD the animator draws on.
type Canvas interface {
	FillRect(origin, extent hal.Point, c hal.Color) error
	DrawImage(origin hal.Point, pixels []byte, w, h int16) error
}

// Animator is the sprite position and velocity.
type Animator struct {
	X, Y  int16
	Step  int16
	Width int16

	sprite []byte
}

// New places sprite at (x, y) moving step pixels per tick on a canvas
// width pixels wide. sprite holds SpriteW*SpriteH little-endian RGB565
// pixels.
func New(sprite []byte, width, x, y, step int16) *Animator {
	return &Animator{X: x, Y: y, Step: step, Width: width, sprite: sprite}
}

// Tick draws the sprite, erases the strip uncovered since the last tick,
// reverses at either margin and advances.
func (a *Animator) Tick(c Canvas) error {
	if err := c.DrawImage(hal.Point{X: a.X, Y: a.Y}, a.sprite, SpriteW, SpriteH); err != nil {
		return fmt.Errorf("animator: draw: %w", err)
	}
	origin, extent := a.Trail()
	if err := c.FillRect(origin, extent, Background); err != nil {
		return fmt.Errorf("animator: erase: %w", err)
	}
	if a.X > a.Width-SpriteW-Margin || a.X < Margin {
		a.Step = -a.Step
	}
	a.X += a.Step
	return nil
}

// Trail returns the strip behind the sprite at its current position: left
// of it when moving right, right of it when moving left.
func (a *Animator) Trail() (origin, extent hal.Point) {
	if a.Step > 0 {
		return hal.Point{X: a.X - a.Step, Y: a.Y}, hal.Point{X: a.Step, Y: SpriteH}
	}
	return hal.Point{X: a.X + SpriteW, Y: a.Y}, hal.Point{X: -a.Step, Y: SpriteH}
}
