//go:build tinygo

package kernel

// TinyGo has no stack walker; the panic screen shows the task name only.
func captureStack() []byte { return nil }
