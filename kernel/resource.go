package kernel

import "fmt"

// Resource owns one piece of shared state. After Start it is only reachable
// through Lock, which runs at the resource's ceiling priority.
type Resource[T any] struct {
	k  *Kernel
	id ResourceID
	v  T
}

// NewResource binds v to id on k.
func NewResource[T any](k *Kernel, id ResourceID, v T) *Resource[T] {
	if id >= MaxResources {
		panic(fmt.Errorf("kernel: resource id %d out of range", id))
	}
	return &Resource[T]{k: k, id: id, v: v}
}

// ID returns the resource id.
func (r *Resource[T]) ID() ResourceID { return r.id }

// Ceiling returns the highest priority among the tasks declaring r.
func (r *Resource[T]) Ceiling() Priority { return r.k.ceilings[r.id] }

// Init gives direct access to the value during initialization.
// It panics once the kernel has started.
func (r *Resource[T]) Init() *T {
	if r.k.started {
		panic(fmt.Errorf("%w: resource %d accessed outside a lock", ErrStarted, r.id))
	}
	return &r.v
}

// Lock runs fn with exclusive access to the value.
//
// For the duration of fn the effective priority is raised to the resource
// ceiling, so no other task declaring r can run. The previous ceiling is
// restored on every exit path, panics included. Work readied during the
// section is dispatched once it ends normally.
func (r *Resource[T]) Lock(ctx *Context, fn func(*T)) {
	k := r.k
	spec := &k.tasks[ctx.kind].spec
	if !spec.Uses.Has(r.id) {
		panic(fmt.Errorf("%w: %s, resource %d", ErrUndeclared, spec.Name, r.id))
	}
	if ctx.locked {
		panic(fmt.Errorf("%w: %s, resource %d", ErrNestedLock, spec.Name, r.id))
	}

	s := k.enter()
	prev := k.ceiling
	if c := k.ceilings[r.id]; c > prev {
		k.ceiling = c
	}
	ctx.locked = true
	k.leave(s)

	done := false
	defer func() {
		s := k.enter()
		k.ceiling = prev
		ctx.locked = false
		k.leave(s)
		if done {
			k.kick()
		}
	}()
	fn(&r.v)
	done = true
}
