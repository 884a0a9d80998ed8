//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"pinewatch/app"
	"pinewatch/hal"
	"pinewatch/internal/buildinfo"
	"pinewatch/power/battery"
)

func main() {
	cfg := app.DefaultConfig()
	hostCfg := hal.DefaultHostConfig()
	var headless hal.HeadlessConfig
	var batteryMode string
	var brightness uint
	var adc int
	var version bool

	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 1000, "Tick rate in headless mode.")
	flag.Uint64Var(&headless.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&batteryMode, "battery-mode", cfg.BatteryMode.String(), "Battery status format: voltage or percent.")
	flag.UintVar(&brightness, "brightness", uint(cfg.Brightness), "Backlight level at boot (0-7).")
	flag.IntVar(&adc, "adc", int(hostCfg.ADC), "Initial raw battery ADC code (14-bit).")
	flag.BoolVar(&hostCfg.Charging, "charging", false, "Start with the charger connected.")
	flag.BoolVar(&hostCfg.PulseButton, "pulse-button", false, "Press the button every few seconds.")
	flag.BoolVar(&hostCfg.Quiet, "quiet", false, "Do not log backlight pin changes.")
	flag.Func("counter-offset", "Initial counter value; values near 0xFFFFFFFF exercise the wrap.", func(s string) error {
		var v uint64
		if _, err := fmt.Sscan(s, &v); err != nil || v > 0xFFFFFFFF {
			return fmt.Errorf("invalid counter offset %q", s)
		}
		hostCfg.CounterOffset = uint32(v)
		return nil
	})
	flag.StringVar(&cfg.BLEName, "ble-name", cfg.BLEName, "Advertised Bluetooth name.")
	flag.BoolVar(&cfg.BootDebug, "boot-debug", false, "Log and draw each init step.")
	flag.BoolVar(&version, "version", false, "Print the build version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.Line())
		return
	}

	mode, err := battery.ParseMode(batteryMode)
	if err != nil {
		fail(err)
	}
	cfg.BatteryMode = mode
	cfg.Brightness = uint8(min(brightness, 7))
	if adc < -32768 || adc > 32767 {
		fail(fmt.Errorf("adc code %d out of range", adc))
	}
	hostCfg.ADC = int16(adc)

	newApp := func(h hal.HAL) (func() error, error) { return app.New(h, cfg) }

	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, headless, hostCfg, newApp); err != nil {
			if err == context.Canceled {
				return
			}
			fail(err)
		}
		return
	}

	if err := hal.RunWindow(hostCfg, newApp); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
