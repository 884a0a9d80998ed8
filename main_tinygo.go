//go:build tinygo && pinetime

package main

import (
	"pinewatch/app"
	"pinewatch/hal"
)

func main() {
	app.Run(hal.New(), app.DefaultConfig())
}
