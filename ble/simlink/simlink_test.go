package simlink

import (
	"errors"
	"strings"
	"testing"

	"pinewatch/ble"
	"pinewatch/kernel"
)

type manualCounter struct{ now uint32 }

func (c *manualCounter) Now() uint32 { return c.now }

type armer struct{ armed int }

func (a *armer) ArmIfIdle(kernel.TaskKind) bool { a.armed++; return true }

// step advances the counter to the next pending interrupt and services it
// the way the hard interrupt handlers would.
func step(t *testing.T, c *manualCounter, s *Sim, link *ble.Link, a *armer) {
	t.Helper()
	switch {
	case s.radioArmed && s.radioCfg.Listen:
		c.now = uint32(s.radioAt)
		link.OnRadio(a, 0)
	case s.timerArmed:
		c.now = uint32(s.timerAt)
		if !link.OnTimer(a, 0) {
			t.Fatalf("timer not pending at %d", c.now)
		}
	default:
		t.Fatalf("nothing armed")
	}
}

func TestAdvertiseThenConnect(t *testing.T) {
	c := &manualCounter{now: 1000}
	s, stack := New(kernel.NewClock(c, 1_000_000), Config{ConnectAfter: 3, ConnInterval: 30_000})
	link := ble.NewLink(stack)
	a := &armer{}

	if err := link.Advertise(200_000, "Rusty PineTime"); err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	if !s.TimerDue(201_000) || s.TimerDue(200_999) {
		t.Fatalf("first advertising event not at now+interval")
	}

	for i := 0; i < 3; i++ {
		step(t, c, s, link, a)
	}
	if !s.Connected() || s.Stats().AdvEvents != 3 {
		t.Fatalf("Connected() = %v after %d events", s.Connected(), s.Stats().AdvEvents)
	}

	// connection event arms the radio, radio event delivers a request.
	step(t, c, s, link, a)
	step(t, c, s, link, a)
	if got := s.Stats().Requests; got != 1 {
		t.Fatalf("Requests = %d, want 1", got)
	}
	if a.armed != 1 {
		t.Fatalf("worker armed %d times, want 1", a.armed)
	}

	n, err := ble.Drain(stack.Responder)
	if err != nil || n != 1 {
		t.Fatalf("Drain() = %d, %v, want 1, nil", n, err)
	}

	step(t, c, s, link, a)
	step(t, c, s, link, a)
	if got := s.Stats().Sent; got != 1 {
		t.Fatalf("Sent = %d, want 1", got)
	}
}

func TestNotifyPublishesLevel(t *testing.T) {
	c := &manualCounter{}
	s, stack := New(kernel.NewClock(c, 1_000_000), Config{ConnectAfter: 1})
	link := ble.NewLink(stack)
	a := &armer{}
	link.Advertise(10, "w")

	if !stack.Notify.Push([]byte{42}) {
		t.Fatalf("Push() failed")
	}
	if !stack.Responder.HasWork() {
		t.Fatalf("HasWork() = false with a queued level")
	}
	ble.Drain(stack.Responder)
	if s.Level() != 42 || s.Stats().Notifications != 0 {
		t.Fatalf("Level, Notifications = %d, %d, want 42, 0", s.Level(), s.Stats().Notifications)
	}

	step(t, c, s, link, a)
	stack.Notify.Push([]byte{41})
	ble.Drain(stack.Responder)
	if s.Level() != 41 || s.Stats().Notifications != 1 {
		t.Fatalf("Level, Notifications = %d, %d, want 41, 1", s.Level(), s.Stats().Notifications)
	}
}

func TestStartAdvertiseRejectsLongName(t *testing.T) {
	_, stack := New(kernel.NewClock(&manualCounter{}, 1_000_000), DefaultConfig())
	_, err := stack.LinkLayer.StartAdvertise(1, strings.Repeat("x", maxNameLen+1))
	if !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("StartAdvertise() error = %v, want ErrNameTooLong", err)
	}
}

func TestUnknownRequestGetsErrorResponse(t *testing.T) {
	s, stack := New(kernel.NewClock(&manualCounter{}, 1_000_000), DefaultConfig())
	s.rxP.Push([]byte{opReadReq, 0x09, 0x00})

	if err := stack.Responder.ProcessOne(); err != nil {
		t.Fatalf("ProcessOne() error = %v", err)
	}
	var buf [8]byte
	n, ok := s.txC.Pop(buf[:])
	if !ok || n != 5 || buf[0] != opError || buf[4] != errNotFound {
		t.Fatalf("response = % x", buf[:n])
	}
}
