package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pinewatch/hal"
	"pinewatch/kernel"
)

var (
	panicFg = hal.Black
	panicBg = hal.White
)

func installPanicHandler(h hal.HAL) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		lines := panicLines(info)
		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString(line)
			}
		}

		disp := h.Display()
		if disp == nil {
			halt()
			return
		}
		drawPanic(disp, lines)
		halt()
	})
}

func panicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"PineTime panic:",
		fmt.Sprintf("task: %d (%s)", info.Task, info.Name),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// drawPanic fills the screen and wraps lines at the panel width. Output
// stops at the bottom edge.
func drawPanic(disp hal.Surface, lines []string) {
	w, h := disp.Size()
	if err := disp.FillRect(hal.Point{}, hal.Point{X: w, Y: h}, panicBg); err != nil {
		return
	}
	cell := hal.TextExtent([]byte("0"))
	if cell.X <= 0 || cell.Y <= 0 {
		return
	}
	cols := w / cell.X
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for len(line) > 0 {
			if y+cell.Y > h {
				return
			}
			chunk, rest := takeRunes(line, cols)
			disp.DrawText(hal.Point{X: 0, Y: y}, []byte(chunk), panicFg, panicBg)
			y += cell.Y
			line = strings.TrimLeft(rest, " ")
		}
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
