//go:build tinygo && pinetime

package hal

import (
	"device/nrf"
	"fmt"
	"runtime/interrupt"

	"pinewatch/kernel"
)

// CounterHz is the TIMER1 rate: 16 MHz prescaled by 2^4.
const CounterHz = 1_000_000

// NVIC priorities usable next to the SoftDevice, highest first.
const (
	nvicAlarm  = 2 << 5
	nvicLevel4 = 3 << 5
	nvicLevel3 = 5 << 5
	nvicLevel2 = 6 << 5
	nvicLevel1 = 7 << 5
)

// Dispatch levels map onto the SWI/EGU pairs the SoftDevice leaves free.
// SWI2 carries SoftDevice events and SWI5 is reserved by it.
const maxBoardLevel kernel.Priority = 4

type timer1Counter struct{}

func (timer1Counter) Now() uint32 {
	nrf.TIMER1.TASKS_CAPTURE[1].Set(1)
	return nrf.TIMER1.CC[1].Get()
}

// swiPort pends software interrupts for ready levels and keeps the TIMER1
// compare armed for the next due entry.
type swiPort struct {
	k      *kernel.Kernel
	levels [maxBoardLevel + 1]*nrf.EGU_Type
}

var board *swiPort

func newSWIPort() *swiPort {
	nrf.TIMER1.TASKS_STOP.Set(1)
	nrf.TIMER1.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	nrf.TIMER1.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	nrf.TIMER1.PRESCALER.Set(4)
	nrf.TIMER1.TASKS_CLEAR.Set(1)
	nrf.TIMER1.TASKS_START.Set(1)

	board = &swiPort{
		levels: [maxBoardLevel + 1]*nrf.EGU_Type{nil, nrf.EGU0, nrf.EGU1, nrf.EGU3, nrf.EGU4},
	}
	return board
}

// Attach enables the dispatch interrupts. Handlers call into k from then on.
func (p *swiPort) Attach(k *kernel.Kernel) {
	p.k = k

	alarm := interrupt.New(nrf.IRQ_TIMER1, func(interrupt.Interrupt) {
		nrf.TIMER1.EVENTS_COMPARE[0].Set(0)
		board.k.Poll()
	})
	alarm.SetPriority(nvicAlarm)
	nrf.TIMER1.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk)
	alarm.Enable()

	l1 := interrupt.New(nrf.IRQ_SWI0_EGU0, func(interrupt.Interrupt) {
		nrf.EGU0.EVENTS_TRIGGERED[0].Set(0)
		board.k.RunLevel(1)
	})
	l2 := interrupt.New(nrf.IRQ_SWI1_EGU1, func(interrupt.Interrupt) {
		nrf.EGU1.EVENTS_TRIGGERED[0].Set(0)
		board.k.RunLevel(2)
	})
	l3 := interrupt.New(nrf.IRQ_SWI3_EGU3, func(interrupt.Interrupt) {
		nrf.EGU3.EVENTS_TRIGGERED[0].Set(0)
		board.k.RunLevel(3)
	})
	l4 := interrupt.New(nrf.IRQ_SWI4_EGU4, func(interrupt.Interrupt) {
		nrf.EGU4.EVENTS_TRIGGERED[0].Set(0)
		board.k.RunLevel(4)
	})
	for _, l := range []struct {
		intr interrupt.Interrupt
		prio uint8
	}{{l1, nvicLevel1}, {l2, nvicLevel2}, {l3, nvicLevel3}, {l4, nvicLevel4}} {
		l.intr.SetPriority(l.prio)
		l.intr.Enable()
	}
	for _, egu := range p.levels[1:] {
		egu.INTENSET.Set(nrf.EGU_INTENSET_TRIGGERED0_Msk)
	}
}

func (p *swiPort) Pend(level kernel.Priority) {
	if level == 0 || level > maxBoardLevel {
		panic(fmt.Errorf("pinetime: no software interrupt for level %d", level))
	}
	p.levels[level].TASKS_TRIGGER[0].Set(1)
}

func (p *swiPort) SetAlarm(at kernel.Instant) {
	nrf.TIMER1.CC[0].Set(uint32(at))
	if !at.After(kernel.Instant(timer1Counter{}.Now())) {
		nrf.TIMER1.EVENTS_COMPARE[0].Set(1)
	}
}

func (p *swiPort) Disable() uintptr { return uintptr(interrupt.Disable()) }

func (p *swiPort) Restore(state uintptr) { interrupt.Restore(interrupt.State(state)) }

var bleTimerHandler func()

// boardIRQs binds the link timer. RADIO belongs to the SoftDevice.
type boardIRQs struct{}

func (boardIRQs) Bind(line IRQLine, fn func()) error {
	if line != IRQBleTimer {
		return fmt.Errorf("irq: line %s: %w", line, ErrNotImplemented)
	}
	bleTimerHandler = fn
	intr := interrupt.New(nrf.IRQ_TIMER2, func(interrupt.Interrupt) {
		// Masked until the bound task reprograms the timer.
		nrf.TIMER2.INTENCLR.Set(nrf.TIMER_INTENCLR_COMPARE0_Msk)
		bleTimerHandler()
	})
	intr.SetPriority(nvicAlarm)
	intr.Enable()
	return nil
}
