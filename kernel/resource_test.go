package kernel

import (
	"strings"
	"testing"
)

type pair struct{ a, b int }

func TestLockDefersSharingTasks(t *testing.T) {
	var (
		k       *Kernel
		shared  *Resource[pair]
		order   []string
		torn    bool
		highRan bool
	)
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "writer", Priority: 1, Uses: Uses(0), Run: func(ctx *Context) {
			shared.Lock(ctx, func(p *pair) {
				p.a++
				ctx.Spawn(1)
				ctx.Spawn(2)
				order = append(order, "writer")
				p.b++
			})
		}},
		{Name: "reader", Priority: 2, Uses: Uses(0), Run: func(ctx *Context) {
			shared.Lock(ctx, func(p *pair) {
				torn = p.a != p.b
				order = append(order, "reader")
			})
		}},
		{Name: "bystander", Priority: 3, Run: func(*Context) {
			highRan = true
			order = append(order, "bystander")
		}},
	})
	shared = NewResource(k, 0, pair{})
	k.Start()

	if got := shared.Ceiling(); got != 2 {
		t.Fatalf("Ceiling() = %d, want 2", got)
	}
	k.Spawn(0)

	if torn {
		t.Fatalf("reader observed a half-written pair")
	}
	if !highRan {
		t.Fatalf("non-sharing task did not run")
	}
	if got, want := strings.Join(order, ","), "bystander,writer,reader"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	if k.Effective() != 0 {
		t.Fatalf("Effective() = %d, want 0", k.Effective())
	}
}

func TestNestedLockPanicsAndReleases(t *testing.T) {
	var (
		k    *Kernel
		a, b *Resource[int]
	)
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "greedy", Priority: 1, Uses: Uses(0, 1), Run: func(ctx *Context) {
			a.Lock(ctx, func(*int) {
				b.Lock(ctx, func(*int) {})
			})
		}},
		{Name: "other", Priority: 5, Uses: Uses(1), Run: noop},
	})
	a = NewResource(k, 0, 0)
	b = NewResource(k, 1, 0)
	k.Start()

	expectPanic(t, ErrNestedLock, func() { k.Spawn(0) })
	if k.Effective() != 0 {
		t.Fatalf("Effective() after panic = %d, want 0", k.Effective())
	}
	if _, ok := k.Pending(0); ok {
		t.Fatalf("panicked task still pending")
	}
}

func TestUndeclaredLockPanics(t *testing.T) {
	var (
		k *Kernel
		r *Resource[int]
	)
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "owner", Priority: 2, Uses: Uses(3), Run: noop},
		{Name: "intruder", Priority: 1, Run: func(ctx *Context) {
			r.Lock(ctx, func(v *int) { *v = 1 })
		}},
	})
	r = NewResource(k, 3, 0)
	k.Start()

	expectPanic(t, ErrUndeclared, func() { k.Spawn(1) })
}

func TestLockReleasesOnPanic(t *testing.T) {
	var (
		k *Kernel
		r *Resource[int]
	)
	k = newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "faulty", Priority: 1, Uses: Uses(0), Run: func(ctx *Context) {
			r.Lock(ctx, func(*int) { panic(ErrNoHandler) })
		}},
		{Name: "peer", Priority: 4, Uses: Uses(0), Run: noop},
	})
	r = NewResource(k, 0, 0)
	k.Start()

	expectPanic(t, ErrNoHandler, func() { k.Spawn(0) })
	if k.Effective() != 0 {
		t.Fatalf("Effective() = %d, want 0", k.Effective())
	}
}

func TestInitOnlyBeforeStart(t *testing.T) {
	k := newTestKernel(t, &fakeCounter{}, []TaskSpec{
		{Name: "a", Priority: 1, Uses: Uses(0), Run: noop},
	})
	r := NewResource(k, 0, 7)

	*r.Init() = 9
	k.Start()
	expectPanic(t, ErrStarted, func() { r.Init() })
}
