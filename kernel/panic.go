package kernel

import "sync/atomic"

// PanicInfo describes the first fatal failure observed by the kernel.
type PanicInfo struct {
	Task  TaskKind
	Name  string
	Value any
	Stack []byte
}

var (
	panicActive  atomic.Bool
	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether a fatal failure has been reported.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first failure). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	if !panicActive.CompareAndSwap(false, true) {
		return
	}
	info.Stack = captureStack()
	if v := panicHandler.Load(); v != nil {
		if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
			fn(info)
		}
	}
}

