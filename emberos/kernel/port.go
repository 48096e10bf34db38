package kernel

// Switcher is the context-switch protocol between the kernel and threads.
//
// A port implements it once per architecture. The scheduler never touches
// registers or exception state directly.
type Switcher interface {
	// Init runs once before the first dispatch. start is called on a
	// thread's own stack the first time that thread is entered.
	Init(start func(slot int))

	// EnterThread saves the kernel context, resumes the thread whose saved
	// stack pointer is sp and returns the thread's new stack pointer once
	// it yields or is preempted. Kernel context only.
	EnterThread(sp uintptr) uintptr

	// Yield traps back to the kernel. Thread context only.
	Yield()

	// TickPreempt forces the running thread back to the kernel. It is
	// called from the tick interrupt.
	TickPreempt()
}

// FrameBuilder writes the synthetic initial frame of a new thread.
type FrameBuilder interface {
	// FrameWords is the size of the synthetic frame.
	FrameWords() int

	// BuildFrame writes the frame at the top of stack and returns the
	// initial stack pointer. slot is passed to the start callback.
	BuildFrame(stack Stack, slot int) uintptr
}

// Port is everything the scheduler needs from a platform.
type Port interface {
	Switcher
	FrameBuilder
}

// Idler is implemented by ports that can sleep the core when nothing is
// runnable.
type Idler interface {
	Idle()
}

// Halter is implemented by ports that can stop the core after a fault.
// Halt does not return.
type Halter interface {
	Halt()
}

// TickMasker is implemented by ports that can mask the tick interrupt.
type TickMasker interface {
	MaskTick()
	UnmaskTick()
}

// Poller is implemented by ports that deliver preemption only at explicit
// points in thread code.
type Poller interface {
	Poll()
}

// PreemptClearer is implemented by ports that latch preemption requests in
// software. ClearPreempt drops a stale request before the next thread is
// entered; the scheduler calls it before ticks may target that thread.
type PreemptClearer interface {
	ClearPreempt()
}
