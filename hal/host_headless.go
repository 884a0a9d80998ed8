//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	Ticks   uint64
}

// RunHeadless runs the firmware without opening a window. Each tick
// services simulated interrupts and then calls the app step.
func RunHeadless(ctx context.Context, cfg HeadlessConfig, hostCfg HostConfig, newApp func(HAL) (func() error, error)) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 1000
	}

	h := newHost(hostCfg)
	step, err := newApp(h)
	if err != nil {
		return err
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()
	defer h.logStats()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.pollIRQs()
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}

func (h *hostHAL) logStats() {
	if h.sim == nil {
		return
	}
	s := h.sim.Stats()
	h.logger.WriteLineString(fmt.Sprintf(
		"ble: adv=%d conn=%d req=%d sent=%d ntf=%d drop=%d level=%d%%",
		s.AdvEvents, s.ConnEvents, s.Requests, s.Sent, s.Notifications, s.Dropped, h.sim.Level()))
}
