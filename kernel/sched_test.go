package kernel

import (
	"errors"
	"strings"
	"testing"
)

func noop(*Context) {}

func newTestKernel(t *testing.T, c *fakeCounter, tasks []TaskSpec) *Kernel {
	t.Helper()
	k, err := New(NewClock(c, 1_000_000), tasks)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Clock{}, []TaskSpec{{Name: "a", Priority: 0, Run: noop}}); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("priority 0: err = %v, want ErrBadPriority", err)
	}
	if _, err := New(Clock{}, []TaskSpec{{Name: "a", Priority: MaxPriority + 1, Run: noop}}); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("priority 8: err = %v, want ErrBadPriority", err)
	}
	if _, err := New(Clock{}, []TaskSpec{{Name: "a", Priority: 1}}); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("nil handler: err = %v, want ErrNoHandler", err)
	}
	many := make([]TaskSpec, MaxTasks+1)
	for i := range many {
		many[i] = TaskSpec{Name: "t", Priority: 1, Run: noop}
	}
	if _, err := New(Clock{}, many); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("too many: err = %v, want ErrTooManyTasks", err)
	}
}

func TestCeilingIsMaxDeclaringPriority(t *testing.T) {
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "low", Priority: 1, Uses: Uses(0, 1), Run: noop},
		{Name: "mid", Priority: 2, Uses: Uses(1), Run: noop},
		{Name: "high", Priority: 5, Uses: Uses(2), Run: noop},
	})

	for id, want := range []Priority{1, 2, 5, 0} {
		if got := k.Ceiling(ResourceID(id)); got != want {
			t.Fatalf("Ceiling(%d) = %d, want %d", id, got, want)
		}
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	c := &fakeCounter{now: 100}
	runs := 0
	k := newTestKernel(t, c, []TaskSpec{
		{Name: "tick", Priority: 1, Run: func(*Context) { runs++ }},
	})
	k.Start()

	if !k.Schedule(0, 200) {
		t.Fatalf("first Schedule() = false, want true")
	}
	if k.Schedule(0, 150) {
		t.Fatalf("second Schedule() = true, want false")
	}
	if due, ok := k.Pending(0); !ok || due != 200 {
		t.Fatalf("Pending() = %d %v, want 200 true", due, ok)
	}

	c.now = 199
	k.Poll()
	if runs != 0 {
		t.Fatalf("runs before due = %d, want 0", runs)
	}
	c.now = 200
	k.Poll()
	k.Poll()
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	if _, ok := k.Pending(0); ok {
		t.Fatalf("Pending() after run = true, want false")
	}
}

func TestPollOrdersByDueThenIndex(t *testing.T) {
	c := &fakeCounter{now: 0}
	var order []string
	rec := func(ctx *Context) { order = append(order, ctx.Name()) }
	k := newTestKernel(t, c, []TaskSpec{
		{Name: "late", Priority: 1, Run: rec},
		{Name: "early", Priority: 1, Run: rec},
		{Name: "tie1", Priority: 1, Run: rec},
		{Name: "tie2", Priority: 1, Run: rec},
	})
	k.Schedule(0, 30)
	k.Schedule(1, 10)
	k.Schedule(2, 20)
	k.Schedule(3, 20)
	k.Start()

	c.now = 40
	k.Poll()

	got := strings.Join(order, ",")
	if want := "early,tie1,tie2,late"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestReleasedWorkWaitsForRunningLevel(t *testing.T) {
	c := &fakeCounter{now: 0}
	var order []string
	var k *Kernel
	rec := func(ctx *Context) { order = append(order, ctx.Name()) }
	k = newTestKernel(t, c, []TaskSpec{
		{Name: "gate", Priority: 4, Run: func(ctx *Context) {
			c.now = 50
			k.Poll()
			order = append(order, "gate")
		}},
		{Name: "low", Priority: 1, Run: rec},
		{Name: "high", Priority: 2, Run: rec},
	})
	k.Schedule(1, 20)
	k.Schedule(2, 20)
	k.Start()
	k.Spawn(0)

	got := strings.Join(order, ",")
	if want := "gate,high,low"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestScheduleAcrossCounterWrap(t *testing.T) {
	c := &fakeCounter{now: 0xFFFF_FF00}
	var order []string
	rec := func(ctx *Context) { order = append(order, ctx.Name()) }
	k := newTestKernel(t, c, []TaskSpec{
		{Name: "afterWrap", Priority: 1, Run: rec},
		{Name: "beforeWrap", Priority: 1, Run: rec},
	})
	k.Start()
	k.Schedule(0, 0x0000_0010)
	k.Schedule(1, 0xFFFF_FFF0)

	c.now = 0xFFFF_FFF8
	k.Poll()
	if got := strings.Join(order, ","); got != "beforeWrap" {
		t.Fatalf("order before wrap = %s, want beforeWrap", got)
	}

	c.now = 0x20
	k.Poll()
	if got := strings.Join(order, ","); got != "beforeWrap,afterWrap" {
		t.Fatalf("order after wrap = %s", got)
	}
}

func TestHigherPriorityPreempts(t *testing.T) {
	var order []string
	var k *Kernel
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "low", Priority: 1, Run: func(ctx *Context) {
			order = append(order, "low:start")
			ctx.Spawn(1)
			order = append(order, "low:end")
		}},
		{Name: "high", Priority: 3, Run: func(ctx *Context) {
			order = append(order, "high")
			ctx.Spawn(2)
		}},
		{Name: "mid", Priority: 2, Run: func(*Context) { order = append(order, "mid") }},
	})
	k.Start()
	k.Spawn(0)

	got := strings.Join(order, ",")
	if want := "low:start,high,mid,low:end"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	if k.Effective() != 0 {
		t.Fatalf("Effective() = %d, want 0", k.Effective())
	}
}

func TestSamePriorityDoesNotPreempt(t *testing.T) {
	var order []string
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "a", Priority: 2, Run: func(ctx *Context) {
			order = append(order, "a:start")
			ctx.Spawn(1)
			order = append(order, "a:end")
		}},
		{Name: "b", Priority: 2, Run: func(*Context) { order = append(order, "b") }},
	})
	k.Start()
	k.Spawn(0)

	if got, want := strings.Join(order, ","), "a:start,a:end,b"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestNothingRunsBeforeStart(t *testing.T) {
	runs := 0
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "a", Priority: 1, Run: func(*Context) { runs++ }},
	})
	k.Spawn(0)
	if runs != 0 {
		t.Fatalf("runs before Start = %d, want 0", runs)
	}
	k.Start()
	if runs != 1 {
		t.Fatalf("runs after Start = %d, want 1", runs)
	}
	expectPanic(t, ErrStarted, k.Start)
}

func TestScheduleAfterIsDriftFree(t *testing.T) {
	c := &fakeCounter{now: 1000}
	var seen []Instant
	k := newTestKernel(t, c, []TaskSpec{
		{Name: "periodic", Priority: 1, Run: func(ctx *Context) {
			seen = append(seen, ctx.Scheduled())
			ctx.ScheduleAfter(100)
		}},
	})
	k.Start()
	k.Schedule(0, 1000)

	c.now = 1137
	k.Poll()
	c.now = 1250
	k.Poll()

	if len(seen) != 3 || seen[0] != 1000 || seen[1] != 1100 || seen[2] != 1200 {
		t.Fatalf("scheduled = %v, want [1000 1100 1200]", seen)
	}
	if due, _ := k.Pending(0); due != 1300 {
		t.Fatalf("next due = %d, want 1300", due)
	}
}

func TestRaiseBoundKinds(t *testing.T) {
	runs := 0
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "irq", Priority: 3, Bound: true, Run: func(*Context) { runs++ }},
		{Name: "task", Priority: 1, Run: noop},
	})
	k.Start()

	if !k.Raise(0) {
		t.Fatalf("Raise() = false, want true")
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	expectPanic(t, ErrBoundTask, func() { k.Spawn(0) })
	expectPanic(t, ErrUnboundTask, func() { k.Raise(1) })
	expectPanic(t, ErrUnknownTask, func() { k.Spawn(7) })
}

func TestArmIfIdleCoalesces(t *testing.T) {
	runs := 0
	var armed []bool
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "worker", Priority: 2, Run: func(*Context) { runs++ }},
		{Name: "burst", Priority: 4, Run: func(ctx *Context) {
			for i := 0; i < 5; i++ {
				armed = append(armed, ctx.ArmIfIdle(0))
			}
		}},
	})
	k.Start()
	k.Spawn(1)

	if len(armed) != 5 || !armed[0] {
		t.Fatalf("armed = %v, want first true", armed)
	}
	for i, ok := range armed[1:] {
		if ok {
			t.Fatalf("ArmIfIdle() #%d on armed worker = true", i+1)
		}
	}
	if runs != 1 {
		t.Fatalf("worker runs = %d, want 1", runs)
	}
}

func TestRaiseCoalescesWhileMasked(t *testing.T) {
	irqs, runs := 0, 0
	var k *Kernel
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "irq", Priority: 3, Bound: true, Run: func(ctx *Context) {
			irqs++
			ctx.ArmIfIdle(1)
		}},
		{Name: "worker", Priority: 2, Run: func(*Context) { runs++ }},
		{Name: "masking", Priority: 4, Run: func(*Context) {
			for i := 0; i < 3; i++ {
				k.Raise(0)
			}
		}},
	})
	k.Start()
	k.Spawn(2)

	if irqs != 1 || runs != 1 {
		t.Fatalf("irqs, runs = %d, %d, want 1, 1", irqs, runs)
	}
}

type fakePort struct {
	pended []Priority
	alarm  Instant
	armed  bool
	depth  int
}

func (p *fakePort) Pend(l Priority)     { p.pended = append(p.pended, l) }
func (p *fakePort) SetAlarm(at Instant) { p.alarm, p.armed = at, true }
func (p *fakePort) Disable() uintptr    { p.depth++; return uintptr(p.depth) }
func (p *fakePort) Restore(uintptr)     { p.depth-- }

func TestHardwarePortPendsLevels(t *testing.T) {
	c := &fakeCounter{now: 10}
	runs := 0
	port := &fakePort{}
	k := newTestKernel(t, c, []TaskSpec{
		{Name: "a", Priority: 2, Run: func(*Context) { runs++ }},
		{Name: "b", Priority: 1, Run: noop},
	})
	k.SetPort(port)
	k.Schedule(1, 500)
	if !port.armed || port.alarm != 500 {
		t.Fatalf("alarm = %d %v, want 500 true", port.alarm, port.armed)
	}
	k.Start()
	k.Spawn(0)

	if runs != 0 {
		t.Fatalf("task ran on pend, runs = %d", runs)
	}
	if len(port.pended) != 1 || port.pended[0] != 2 {
		t.Fatalf("pended = %v, want [2]", port.pended)
	}
	k.RunLevel(2)
	if runs != 1 {
		t.Fatalf("runs after RunLevel = %d, want 1", runs)
	}
	if port.depth != 0 {
		t.Fatalf("unbalanced Disable/Restore, depth = %d", port.depth)
	}
}

func TestFatalInvokesPanicHandler(t *testing.T) {
	panicActive.Store(false)
	var got PanicInfo
	SetPanicHandler(func(info PanicInfo) { got = info })
	defer SetPanicHandler(nil)

	boom := errors.New("spi: bus fault")
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "lcd", Priority: 1, Run: func(ctx *Context) { ctx.Fatal(boom) }},
	})
	k.Start()
	expectPanic(t, boom, func() { k.Spawn(0) })

	if got.Name != "lcd" || got.Value != boom {
		t.Fatalf("PanicInfo = %+v", got)
	}
	if !InPanicMode() {
		t.Fatalf("InPanicMode() = false, want true")
	}
	if k.Effective() != 0 {
		t.Fatalf("Effective() after panic = %d, want 0", k.Effective())
	}
}

func TestTaskPanicReportedOnce(t *testing.T) {
	panicActive.Store(false)
	calls := 0
	SetPanicHandler(func(PanicInfo) { calls++ })
	defer SetPanicHandler(nil)

	boom := errors.New("index out of range")
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "outer", Priority: 1, Run: func(ctx *Context) { ctx.Spawn(1) }},
		{Name: "inner", Priority: 2, Run: func(*Context) { panic(boom) }},
	})
	k.Start()
	expectPanic(t, boom, func() { k.Spawn(0) })
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}
