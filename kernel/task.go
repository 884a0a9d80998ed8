package kernel

import (
	"errors"
	"fmt"
)

const (
	// MaxTasks bounds the number of task kinds in a table.
	MaxTasks = 32
	// MaxResources bounds the number of shared resources.
	MaxResources = 32
	// MaxPriority is the highest task priority. Priority 0 is the idle level.
	MaxPriority Priority = 7
)

// TaskKind identifies one entry of the task table.
type TaskKind uint8

// Priority is a static dispatch priority; higher values preempt lower ones.
type Priority uint8

// ResourceID identifies a shared resource.
type ResourceID uint8

// ResourceSet is a bitmask of resources a task may lock.
type ResourceSet uint32

// Uses returns the set containing ids.
func Uses(ids ...ResourceID) ResourceSet {
	var s ResourceSet
	for _, id := range ids {
		s |= 1 << id
	}
	return s
}

// Has reports whether id is in the set.
func (s ResourceSet) Has(id ResourceID) bool {
	return id < MaxResources && s&(1<<id) != 0
}

// Handler is a task body. It runs to completion.
type Handler func(*Context)

// TaskSpec describes one task kind.
//
// Bound kinds are hardware interrupt handlers: they are triggered with
// Kernel.Raise and cannot be scheduled.
type TaskSpec struct {
	Name     string
	Priority Priority
	Uses     ResourceSet
	Bound    bool
	Run      Handler
}

var (
	ErrTooManyTasks = errors.New("kernel: too many task kinds")
	ErrBadPriority  = errors.New("kernel: priority out of range")
	ErrNoHandler    = errors.New("kernel: task has no handler")
	ErrNestedLock   = errors.New("kernel: nested resource lock")
	ErrUndeclared   = errors.New("kernel: resource not declared by task")
	ErrStarted      = errors.New("kernel: already started")
	ErrUnknownTask  = errors.New("kernel: unknown task kind")
	ErrBoundTask    = errors.New("kernel: bound task cannot be scheduled")
	ErrUnboundTask  = errors.New("kernel: task is not bound to an interrupt")
)

func validate(tasks []TaskSpec) error {
	if len(tasks) > MaxTasks {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTasks, len(tasks), MaxTasks)
	}
	for i, t := range tasks {
		if t.Priority == 0 || t.Priority > MaxPriority {
			return fmt.Errorf("%w: task %d (%s) priority %d", ErrBadPriority, i, t.Name, t.Priority)
		}
		if t.Run == nil {
			return fmt.Errorf("%w: task %d (%s)", ErrNoHandler, i, t.Name)
		}
	}
	return nil
}

// Context is handed to a running task body.
type Context struct {
	k         *Kernel
	kind      TaskKind
	prio      Priority
	scheduled Instant
	locked    bool
}

// Kind returns the running task kind.
func (c *Context) Kind() TaskKind { return c.kind }

// Name returns the table name of the running task.
func (c *Context) Name() string { return c.k.tasks[c.kind].spec.Name }

// Priority returns the static priority of the running task.
func (c *Context) Priority() Priority { return c.prio }

// Scheduled returns the due time this invocation was released for.
// Periodic tasks reschedule relative to it so the period does not drift.
func (c *Context) Scheduled() Instant { return c.scheduled }

// Now returns the current counter value.
func (c *Context) Now() Instant { return c.k.clock.Now() }

// Clock returns the kernel clock.
func (c *Context) Clock() Clock { return c.k.clock }

// Schedule requests kind to run at the absolute time at.
func (c *Context) Schedule(kind TaskKind, at Instant) bool { return c.k.Schedule(kind, at) }

// ScheduleAfter reschedules the running task at Scheduled()+d.
func (c *Context) ScheduleAfter(d Duration) bool {
	return c.k.Schedule(c.kind, c.scheduled.Add(d))
}

// Spawn requests kind to run as soon as its priority allows.
func (c *Context) Spawn(kind TaskKind) bool { return c.k.Spawn(kind) }

// ArmIfIdle spawns kind unless it already has a pending entry.
func (c *Context) ArmIfIdle(kind TaskKind) bool { return c.k.ArmIfIdle(kind) }

// Fatal reports an unrecoverable peripheral failure and halts the task.
// The panic handler sees err as the panic value.
func (c *Context) Fatal(err error) {
	panic(err)
}
