//go:build tinygo

package app

// halt parks the core after a fatal failure.
func halt() { select {} }
