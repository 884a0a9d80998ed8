//go:build !tinygo

package app

// halt returns so the panic reaches the host runner and ends the process.
func halt() {}
