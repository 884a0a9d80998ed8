package app

import (
	"strconv"

	"pinewatch/ble"
	"pinewatch/display/animator"
	"pinewatch/display/backlight"
	"pinewatch/hal"
	"pinewatch/input/debounce"
	"pinewatch/kernel"
	"pinewatch/kernel/spsc"
	"pinewatch/power/battery"
)

// Task kinds, in table order.
const (
	taskRadio kernel.TaskKind = iota
	taskBleTimer
	taskBleWorker
	taskWriteFerris
	taskWriteCounter
	taskPollButton
	taskButtonPressed
	taskUpdateBattery
	taskShowBattery
)

// Shared resources.
const (
	resLCD kernel.ResourceID = iota
	resFerris
	resCounter
	resButton
	resBacklight
	resBattery
	resLink
	resResponder
	resNotify
)

func (s *system) tasks() []kernel.TaskSpec {
	return []kernel.TaskSpec{
		taskRadio:         {Name: "radio", Priority: 3, Bound: true, Uses: kernel.Uses(resLink), Run: s.radio},
		taskBleTimer:      {Name: "bleTimer", Priority: 3, Bound: true, Uses: kernel.Uses(resLink), Run: s.bleTimer},
		taskBleWorker:     {Name: "bleWorker", Priority: 2, Uses: kernel.Uses(resResponder), Run: s.bleWorker},
		taskWriteFerris:   {Name: "writeFerris", Priority: 1, Uses: kernel.Uses(resLCD, resFerris), Run: s.writeFerris},
		taskWriteCounter:  {Name: "writeCounter", Priority: 1, Uses: kernel.Uses(resLCD, resCounter), Run: s.writeCounter},
		taskPollButton:    {Name: "pollButton", Priority: 1, Uses: kernel.Uses(resButton), Run: s.pollButton},
		taskButtonPressed: {Name: "buttonPressed", Priority: 1, Uses: kernel.Uses(resBacklight), Run: s.buttonPressed},
		taskUpdateBattery: {Name: "updateBattery", Priority: 1, Uses: kernel.Uses(resBattery, resNotify), Run: s.updateBattery},
		taskShowBattery:   {Name: "showBattery", Priority: 1, Uses: kernel.Uses(resBattery, resLCD), Run: s.showBattery},
	}
}

func (s *system) radio(ctx *kernel.Context) {
	s.link.Lock(ctx, func(l *ble.Link) {
		l.OnRadio(ctx, taskBleWorker)
	})
}

func (s *system) bleTimer(ctx *kernel.Context) {
	s.link.Lock(ctx, func(l *ble.Link) {
		l.OnTimer(ctx, taskBleWorker)
	})
}

// bleWorker drains protocol work and stays idle until an interrupt re-arms
// it.
func (s *system) bleWorker(ctx *kernel.Context) {
	var err error
	s.responder.Lock(ctx, func(r *ble.Responder) {
		_, err = ble.Drain(*r)
	})
	if err != nil {
		ctx.Fatal(err)
	}
}

func (s *system) writeFerris(ctx *kernel.Context) {
	var a animator.Animator
	s.ferris.Lock(ctx, func(f *animator.Animator) { a = *f })

	var err error
	s.lcd.Lock(ctx, func(lcd *hal.Surface) { err = a.Tick(*lcd) })
	if err != nil {
		ctx.Fatal(err)
	}

	s.ferris.Lock(ctx, func(f *animator.Animator) { *f = a })
	ctx.ScheduleAfter(s.ferrisPeriod)
}

func (s *system) writeCounter(ctx *kernel.Context) {
	var n uint32
	s.counter.Lock(ctx, func(c *uint32) {
		n = *c
		*c++
	})
	s.logf("Counter is %d", n)

	var buf [10]byte
	text := strconv.AppendUint(buf[:0], uint64(n), 10)
	var err error
	s.lcd.Lock(ctx, func(lcd *hal.Surface) {
		_, h := (*lcd).Size()
		_, err = (*lcd).DrawText(hal.Point{X: margin, Y: h - margin - 16}, text, textFg, textBg)
	})
	if err != nil {
		ctx.Fatal(err)
	}
	ctx.ScheduleAfter(s.counterPeriod)
}

func (s *system) pollButton(ctx *kernel.Context) {
	var edge debounce.Edge
	var err error
	s.button.Lock(ctx, func(b *buttonState) {
		var pressed bool
		if pressed, err = b.pin.Read(); err == nil {
			edge = b.deb.Update(pressed)
		}
	})
	if err != nil {
		ctx.Fatal(err)
	}
	if edge == debounce.Rising {
		ctx.Spawn(taskButtonPressed)
	}
	ctx.ScheduleAfter(s.pollPeriod)
}

// buttonPressed steps the backlight up and wraps to off past the brightest
// level.
func (s *system) buttonPressed(ctx *kernel.Context) {
	var level uint8
	var err error
	s.backlight.Lock(ctx, func(b *backlight.Backlight) {
		if b.Level() < backlight.Max {
			err = b.Brighter()
		} else {
			err = b.Off()
		}
		level = b.Level()
	})
	if err != nil {
		ctx.Fatal(err)
	}
	s.logf("Backlight level %d", level)
}

func (s *system) updateBattery(ctx *kernel.Context) {
	s.logf("Update battery status")

	var changed bool
	var percent uint8
	var err error
	s.battery.Lock(ctx, func(m *battery.Monitor) {
		changed, err = m.Update()
		percent = m.Percent()
	})
	if err != nil {
		ctx.Fatal(err)
	}

	if changed {
		s.logf("Battery status changed")
		ctx.Spawn(taskShowBattery)
		level := [1]byte{percent}
		s.notify.Lock(ctx, func(p *spsc.Producer) {
			if !p.Push(level[:]) {
				s.logf("ble: battery level dropped")
			}
		})
	}
	ctx.ScheduleAfter(s.batteryPeriod)
}

// showBattery draws the status in the top-right corner. A shorter string
// than last time is padded with background on the left.
func (s *system) showBattery(ctx *kernel.Context) {
	var buf [8]byte
	var text []byte
	var voltage uint8
	var charging bool
	s.battery.Lock(ctx, func(m *battery.Monitor) {
		text = m.Append(buf[:0], s.cfg.BatteryMode)
		voltage, charging = m.Voltage(), m.Charging()
	})
	state := "discharging"
	if charging {
		state = "charging"
	}
	s.logf("Battery status: %d (%s)", voltage, state)

	ext := hal.TextExtent(text)
	prev := s.batteryW
	s.batteryW = ext.X
	var err error
	s.lcd.Lock(ctx, func(lcd *hal.Surface) {
		w, _ := (*lcd).Size()
		x := w - ext.X - margin
		if prev > ext.X {
			err = (*lcd).FillRect(hal.Point{X: w - prev - margin, Y: margin}, hal.Point{X: prev - ext.X, Y: ext.Y}, textBg)
		}
		if err == nil {
			_, err = (*lcd).DrawText(hal.Point{X: x, Y: margin}, text, textFg, textBg)
		}
	})
	if err != nil {
		ctx.Fatal(err)
	}
}
