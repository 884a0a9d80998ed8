//go:build tinygo && pinetime

package hal

import (
	"device/nrf"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"

	"pinewatch/ble"
	"pinewatch/kernel"
	"pinewatch/kernel/spsc"
)

// softDeviceLink advertises through the SoftDevice and uses TIMER2 as its
// housekeeping timer. Each timer event forwards pending battery levels to
// the GATT battery service.
type softDeviceLink struct {
	clock    kernel.Clock
	interval kernel.Duration
	adapter  *bluetooth.Adapter
	level    bluetooth.Characteristic
	notifyC  spsc.Consumer
	buf      [spsc.PacketSize]byte
}

func newSoftDeviceStack(clock kernel.Clock) ble.Stack {
	nrf.TIMER2.TASKS_STOP.Set(1)
	nrf.TIMER2.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	nrf.TIMER2.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	nrf.TIMER2.PRESCALER.Set(4)
	nrf.TIMER2.TASKS_CLEAR.Set(1)
	nrf.TIMER2.TASKS_START.Set(1)

	notifyP, notifyC := spsc.New(8).Split()
	l := &softDeviceLink{clock: clock, adapter: bluetooth.DefaultAdapter, notifyC: notifyC}
	return ble.Stack{
		LinkLayer: l,
		Radio:     sdRadio{},
		Timer:     timer2{},
		Responder: l,
		Notify:    notifyP,
	}
}

func (l *softDeviceLink) StartAdvertise(interval kernel.Duration, name string) (kernel.Instant, error) {
	if err := l.adapter.Enable(); err != nil {
		return 0, fmt.Errorf("enable: %w", err)
	}
	err := l.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.ServiceUUIDBattery,
		Characteristics: []bluetooth.CharacteristicConfig{{
			Handle: &l.level,
			UUID:   bluetooth.CharacteristicUUIDBatteryLevel,
			Value:  []byte{0},
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("battery service: %w", err)
	}

	us := uint64(interval) * 1_000_000 / uint64(l.clock.Hz())
	adv := l.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName: name,
		Interval:  bluetooth.NewDuration(time.Duration(us) * time.Microsecond),
	})
	if err != nil {
		return 0, fmt.Errorf("configure: %w", err)
	}
	if err := adv.Start(); err != nil {
		return 0, fmt.Errorf("start: %w", err)
	}
	l.interval = interval
	return timer2{}.Now().Add(interval), nil
}

// HandleRadio never has anything to do: the SoftDevice services RADIO.
func (l *softDeviceLink) HandleRadio(kernel.Instant) (ble.Command, bool) {
	return ble.Command{}, false
}

func (l *softDeviceLink) UpdateTimer(now kernel.Instant) ble.Command {
	return ble.Command{
		NextWake:   now.Add(l.interval),
		QueuedWork: l.HasWork(),
	}
}

func (l *softDeviceLink) HasWork() bool { return l.notifyC.Len() > 0 }

func (l *softDeviceLink) ProcessOne() error {
	n, ok := l.notifyC.Pop(l.buf[:])
	if !ok || n == 0 {
		return nil
	}
	if _, err := l.level.Write(l.buf[:1]); err != nil {
		return fmt.Errorf("battery level: %w", err)
	}
	return nil
}

type sdRadio struct{}

func (sdRadio) Configure(ble.RadioConfig) {}

// timer2 shares the TIMER1 rate so link instants and kernel instants have
// the same unit.
type timer2 struct{}

func (timer2) Now() kernel.Instant {
	nrf.TIMER2.TASKS_CAPTURE[1].Set(1)
	return kernel.Instant(nrf.TIMER2.CC[1].Get())
}

func (timer2) Configure(at kernel.Instant) {
	nrf.TIMER2.CC[0].Set(uint32(at))
	nrf.TIMER2.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk)
}

func (timer2) Pending() bool { return nrf.TIMER2.EVENTS_COMPARE[0].Get() != 0 }

func (timer2) Clear() { nrf.TIMER2.EVENTS_COMPARE[0].Set(0) }
