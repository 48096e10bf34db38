package kernel

import "sync/atomic"

// installed is the process-wide scheduler. It is set once at boot and
// never cleared.
var installed atomic.Pointer[Scheduler]

// Install records s as the process-wide scheduler used by the tick
// interrupt and the free functions in this package. It panics if called
// twice.
func Install(s *Scheduler) {
	if s == nil {
		panic("kernel: Install(nil)")
	}
	if !installed.CompareAndSwap(nil, s) {
		panic("kernel: scheduler already installed")
	}
}

// Installed returns the process-wide scheduler, or nil before Install.
func Installed() *Scheduler {
	return installed.Load()
}

// NowMs returns the installed scheduler's millisecond counter.
func NowMs() uint32 {
	if s := installed.Load(); s != nil {
		return s.NowMs()
	}
	return 0
}

// Tick forwards one system tick to the installed scheduler.
func Tick() {
	if s := installed.Load(); s != nil {
		s.Tick()
	}
}

// Yield traps from the calling thread back to the installed scheduler.
func Yield() {
	if s := installed.Load(); s != nil {
		s.port.Yield()
	}
}
