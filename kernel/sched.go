package kernel

import "fmt"

// Port connects the dispatcher to the interrupt controller.
//
// A nil Port is the software port: readying work above the current
// effective priority runs it inline on the caller's stack, which is how a
// nested interrupt would preempt on hardware.
type Port interface {
	// Pend requests the software interrupt serving level p. Its handler
	// must call Kernel.RunLevel(p).
	Pend(p Priority)
	// SetAlarm programs the compare interrupt that calls Kernel.Poll.
	SetAlarm(at Instant)
	// Disable masks interrupts for a short bookkeeping section.
	Disable() uintptr
	Restore(state uintptr)
}

type taskState struct {
	spec      TaskSpec
	scheduled bool
	ready     bool
	due       Instant
}

// Kernel is a static-priority run-to-completion dispatcher over a closed
// table of task kinds.
type Kernel struct {
	clock Clock
	port  Port

	tasks [MaxTasks]taskState
	n     int

	ceilings [MaxResources]Priority
	ctxs     [MaxPriority + 1]Context

	running Priority
	ceiling Priority
	started bool
}

// New validates the task table and computes every resource ceiling.
func New(clock Clock, tasks []TaskSpec) (*Kernel, error) {
	if err := validate(tasks); err != nil {
		return nil, err
	}
	k := &Kernel{clock: clock, n: len(tasks)}
	for i, t := range tasks {
		k.tasks[i].spec = t
		for id := ResourceID(0); id < MaxResources; id++ {
			if t.Uses.Has(id) && t.Priority > k.ceilings[id] {
				k.ceilings[id] = t.Priority
			}
		}
	}
	return k, nil
}

// SetPort installs the hardware port. It must be called before Start.
func (k *Kernel) SetPort(p Port) {
	if k.started {
		panic(ErrStarted)
	}
	k.port = p
}

// Clock returns the kernel clock.
func (k *Kernel) Clock() Clock { return k.clock }

// Now returns the current counter value.
func (k *Kernel) Now() Instant { return k.clock.Now() }

// Ceiling returns the ceiling priority of resource id.
func (k *Kernel) Ceiling(id ResourceID) Priority {
	if id >= MaxResources {
		return 0
	}
	return k.ceilings[id]
}

// Effective returns max(running level, active ceiling).
func (k *Kernel) Effective() Priority { return k.effective() }

// Started reports whether Start has been called.
func (k *Kernel) Started() bool { return k.started }

// Pending reports whether kind has an entry, and its due time.
func (k *Kernel) Pending(kind TaskKind) (Instant, bool) {
	t := k.task(kind)
	s := k.enter()
	due, ok := t.due, t.scheduled
	k.leave(s)
	return due, ok
}

// Schedule requests kind to run once the counter reaches at.
//
// A kind has at most one entry. Scheduling a kind that is already pending
// changes nothing and returns false.
func (k *Kernel) Schedule(kind TaskKind, at Instant) bool {
	t := k.task(kind)
	if t.spec.Bound {
		panic(fmt.Errorf("%w: %s", ErrBoundTask, t.spec.Name))
	}
	s := k.enter()
	if t.scheduled {
		k.leave(s)
		return false
	}
	t.scheduled = true
	t.due = at
	due := !at.After(k.clock.Now())
	if !due {
		k.rearm()
	}
	k.leave(s)
	if due {
		k.Poll()
	}
	return true
}

// Spawn requests kind to run as soon as its priority allows.
func (k *Kernel) Spawn(kind TaskKind) bool {
	return k.Schedule(kind, k.clock.Now())
}

// ArmIfIdle spawns kind unless it already has a pending entry, in which
// case the request is absorbed and false is returned. Work deferred from a
// hard interrupt is armed this way so a burst of interrupts collapses into
// one worker run.
func (k *Kernel) ArmIfIdle(kind TaskKind) bool {
	return k.Spawn(kind)
}

// Raise marks a bound kind ready, as its hardware interrupt line would.
func (k *Kernel) Raise(kind TaskKind) bool {
	t := k.task(kind)
	if !t.spec.Bound {
		panic(fmt.Errorf("%w: %s", ErrUnboundTask, t.spec.Name))
	}
	s := k.enter()
	if t.scheduled {
		k.leave(s)
		return false
	}
	t.scheduled, t.ready = true, true
	t.due = k.clock.Now()
	k.leave(s)
	k.kick()
	return true
}

// Poll releases every entry whose due time has been reached and dispatches
// eligible work. Entries are released one at a time, earliest due first,
// then higher priority, then lower kind index.
func (k *Kernel) Poll() {
	for {
		s := k.enter()
		i, ok := k.nextDue(k.clock.Now())
		if !ok {
			k.rearm()
			k.leave(s)
			return
		}
		k.tasks[i].ready = true
		k.leave(s)
		k.kick()
	}
}

// NextDue returns the earliest unreleased due time.
func (k *Kernel) NextDue() (Instant, bool) {
	s := k.enter()
	at, ok := k.earliest()
	k.leave(s)
	return at, ok
}

// Start seals initialization and dispatches everything already due.
func (k *Kernel) Start() {
	if k.started {
		panic(ErrStarted)
	}
	k.started = true
	k.Poll()
	k.kick()
}

// RunLevel runs ready work at level p to exhaustion, earliest due first.
// It returns without running anything while p does not exceed the effective
// priority.
func (k *Kernel) RunLevel(p Priority) {
	for {
		s := k.enter()
		if p <= k.effective() {
			k.leave(s)
			return
		}
		i, ok := k.pick(p)
		if !ok {
			k.leave(s)
			return
		}
		t := &k.tasks[i]
		due := t.due
		t.scheduled, t.ready = false, false
		prev := k.running
		k.running = p
		k.leave(s)

		k.run(TaskKind(i), p, due, prev)
	}
}

func (k *Kernel) run(kind TaskKind, p Priority, due Instant, prev Priority) {
	ctx := &k.ctxs[p]
	*ctx = Context{k: k, kind: kind, prio: p, scheduled: due}
	spec := &k.tasks[kind].spec
	defer func() {
		s := k.enter()
		k.running = prev
		k.leave(s)
		if r := recover(); r != nil {
			triggerPanic(PanicInfo{Task: kind, Name: spec.Name, Value: r})
			panic(r)
		}
	}()
	spec.Run(ctx)
}

// kick hands ready work to the interrupt controller, or runs it inline on
// the software port.
func (k *Kernel) kick() {
	if !k.started {
		return
	}
	if k.port != nil {
		s := k.port.Disable()
		var levels uint8
		for i := 0; i < k.n; i++ {
			if k.tasks[i].ready {
				levels |= 1 << k.tasks[i].spec.Priority
			}
		}
		k.port.Restore(s)
		for p := MaxPriority; p > 0; p-- {
			if levels&(1<<p) != 0 {
				k.port.Pend(p)
			}
		}
		return
	}
	for {
		p, ok := k.highestReady()
		if !ok || p <= k.effective() {
			return
		}
		k.RunLevel(p)
	}
}

func (k *Kernel) effective() Priority {
	if k.ceiling > k.running {
		return k.ceiling
	}
	return k.running
}

func (k *Kernel) task(kind TaskKind) *taskState {
	if int(kind) >= k.n {
		panic(fmt.Errorf("%w: %d", ErrUnknownTask, kind))
	}
	return &k.tasks[kind]
}

func (k *Kernel) pick(p Priority) (int, bool) {
	best := -1
	for i := 0; i < k.n; i++ {
		t := &k.tasks[i]
		if !t.ready || t.spec.Priority != p {
			continue
		}
		if best < 0 || t.due.Before(k.tasks[best].due) {
			best = i
		}
	}
	return best, best >= 0
}

func (k *Kernel) highestReady() (Priority, bool) {
	s := k.enter()
	defer k.leave(s)
	var p Priority
	for i := 0; i < k.n; i++ {
		if k.tasks[i].ready && k.tasks[i].spec.Priority > p {
			p = k.tasks[i].spec.Priority
		}
	}
	return p, p > 0
}

func (k *Kernel) nextDue(now Instant) (int, bool) {
	best := -1
	for i := 0; i < k.n; i++ {
		t := &k.tasks[i]
		if !t.scheduled || t.ready || t.due.After(now) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := &k.tasks[best]
		switch Compare(t.due, b.due) {
		case -1:
			best = i
		case 0:
			if t.spec.Priority > b.spec.Priority {
				best = i
			}
		}
	}
	return best, best >= 0
}

func (k *Kernel) earliest() (Instant, bool) {
	var at Instant
	found := false
	for i := 0; i < k.n; i++ {
		t := &k.tasks[i]
		if !t.scheduled || t.ready {
			continue
		}
		if !found || t.due.Before(at) {
			at, found = t.due, true
		}
	}
	return at, found
}

func (k *Kernel) rearm() {
	if k.port == nil {
		return
	}
	if at, ok := k.earliest(); ok {
		k.port.SetAlarm(at)
	}
}

func (k *Kernel) enter() uintptr {
	if k.port == nil {
		return 0
	}
	return k.port.Disable()
}

func (k *Kernel) leave(s uintptr) {
	if k.port != nil {
		k.port.Restore(s)
	}
}
