package kernel

import "fmt"

// FaultReason classifies a fatal kernel condition.
type FaultReason uint8

const (
	FaultStackOverflow FaultReason = iota + 1
	FaultStackPointer
	FaultThreadReturned
	FaultThreadPanic
)

func (r FaultReason) String() string {
	switch r {
	case FaultStackOverflow:
		return "stack overflow"
	case FaultStackPointer:
		return "stack pointer above stack top"
	case FaultThreadReturned:
		return "thread entry returned"
	case FaultThreadPanic:
		return "thread panicked"
	default:
		return "unknown"
	}
}

// Fault describes a fatal condition. The kernel does not continue after one.
type Fault struct {
	Reason FaultReason
	Thread ThreadID
	Name   string

	SP     uintptr
	Bottom uintptr
	Top    uintptr

	// Value is the recovered panic value for FaultThreadPanic.
	Value any
	Stack []byte
}

func (f *Fault) Error() string {
	switch f.Reason {
	case FaultStackOverflow, FaultStackPointer:
		return fmt.Sprintf("kernel: %s: thread %d (%s) sp=%#x stack=[%#x,%#x)",
			f.Reason, f.Thread, f.Name, f.SP, f.Bottom, f.Top)
	case FaultThreadPanic:
		return fmt.Sprintf("kernel: %s: thread %d (%s): %v", f.Reason, f.Thread, f.Name, f.Value)
	default:
		return fmt.Sprintf("kernel: %s: thread %d (%s)", f.Reason, f.Thread, f.Name)
	}
}

// fatal reports f once and stops. On ports without a Halter it panics with f.
func (s *Scheduler) fatal(f *Fault) {
	if s.faulted.CompareAndSwap(false, true) {
		f.Stack = captureStack()
		s.logf("%s", f.Error())
		if s.onFault != nil {
			s.onFault(f)
		}
	}
	if h, ok := s.port.(Halter); ok {
		h.Halt()
	}
	panic(f)
}

// Faulted reports whether the scheduler has hit a fatal condition.
func (s *Scheduler) Faulted() bool {
	return s.faulted.Load()
}

func (s *Scheduler) checkStack(id ThreadID) {
	t := &s.threads[id]
	var reason FaultReason
	switch {
	case t.Overflowed():
		reason = FaultStackOverflow
	case t.stackAboveTop():
		reason = FaultStackPointer
	default:
		return
	}
	s.fatal(&Fault{
		Reason: reason,
		Thread: id,
		Name:   t.name,
		SP:     t.sp,
		Bottom: t.stackBottom(),
		Top:    t.stack.Top,
	})
}
