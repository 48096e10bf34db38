//go:build !tinygo

// Package host runs kernel threads as goroutines on a development machine.
//
// Exactly one goroutine runs at a time: the kernel or the thread it entered.
// Control moves between them over channels, so the scheduler sees the same
// enter/yield protocol it gets from the hardware port. Goroutines cannot be
// interrupted, so a tick that lands while a thread runs is delivered the
// next time the thread calls Poll or Yield.
package host

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ember/emberos/kernel"
)

const (
	frameMagic kernel.Word = 0xE3B0_5EED

	frameWords = 3

	frameMagicIdx  = 0
	frameSlotIdx   = 1
	frameResumeIdx = 2
)

// Option configures a Port.
type Option func(*Port)

// WithVirtualClock replaces wall-clock ticks with one tick every
// cyclesPerTick preemption points. Runs become deterministic.
func WithVirtualClock(cyclesPerTick int) Option {
	return func(p *Port) {
		if cyclesPerTick < 1 {
			cyclesPerTick = 1
		}
		p.cyclesPerTick = cyclesPerTick
	}
}

// WithTickPeriod sets the wall-clock tick period.
func WithTickPeriod(d time.Duration) Option {
	return func(p *Port) { p.tickPeriod = d }
}

// Port is the goroutine-backed kernel port.
type Port struct {
	start func(slot int)
	clock func()

	threads [kernel.MaxThreads]thread
	cur     int
	back    chan handoff
	preempt atomic.Bool

	cyclesPerTick int
	cycles        int
	tickPeriod    time.Duration
	external      bool

	mu       sync.Mutex
	masked   bool
	deferred int

	stop chan struct{}
	once sync.Once
}

type thread struct {
	stack   kernel.Stack
	used    bool
	started bool
	resume  chan struct{}
}

type handoff struct {
	exited bool
	value  any
}

// New creates a port. Ticks are not generated until AttachClock is called.
func New(opts ...Option) *Port {
	p := &Port{
		cur:        -1,
		back:       make(chan handoff),
		tickPeriod: time.Duration(kernel.TickPeriodMs) * time.Millisecond,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AttachClock sets the function called on every tick, normally the
// scheduler's Tick.
func (p *Port) AttachClock(tick func()) {
	p.clock = tick
}

// Virtual reports whether the port runs on a virtual clock.
func (p *Port) Virtual() bool { return p.cyclesPerTick > 0 }

// Cycles returns the number of preemption points passed on the virtual
// clock.
func (p *Port) Cycles() int { return p.cycles }

func (p *Port) FrameWords() int { return frameWords }

func (p *Port) BuildFrame(stack kernel.Stack, slot int) uintptr {
	i := len(stack.Words) - frameWords
	stack.Words[i+frameMagicIdx] = frameMagic
	stack.Words[i+frameSlotIdx] = kernel.Word(slot)
	stack.Words[i+frameResumeIdx] = 0

	p.threads[slot] = thread{
		stack:  stack,
		used:   true,
		resume: make(chan struct{}),
	}
	return stack.Addr(i)
}

func (p *Port) Init(start func(slot int)) {
	p.start = start
	if p.Virtual() || p.clock == nil || p.external {
		return
	}
	go p.ticker()
}

// TickFrom delivers one tick per value received on ch instead of running
// the wall-clock ticker. Ticks still honour MaskTick. Call it after
// AttachClock and before the scheduler starts.
func (p *Port) TickFrom(ch <-chan uint64) {
	p.external = true
	go func() {
		for {
			select {
			case <-p.stop:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				p.tick()
			}
		}
	}()
}

// Close stops the wall-clock ticker.
func (p *Port) Close() error {
	p.once.Do(func() { close(p.stop) })
	return nil
}

func (p *Port) ticker() {
	t := time.NewTicker(p.tickPeriod)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-t.C:
			p.tick()
		}
	}
}

func (p *Port) EnterThread(sp uintptr) uintptr {
	slot, i := p.lookup(sp)
	th := &p.threads[slot]
	th.stack.Words[i+frameResumeIdx]++

	p.cur = slot
	if !th.started {
		th.started = true
		go p.run(slot)
	} else {
		th.resume <- struct{}{}
	}
	h := <-p.back
	p.cur = -1

	if h.exited {
		if h.value == nil {
			panic(fmt.Sprintf("host: thread %d exited", slot))
		}
		panic(h.value)
	}
	return sp
}

func (p *Port) lookup(sp uintptr) (int, int) {
	for slot := range p.threads {
		th := &p.threads[slot]
		if !th.used {
			continue
		}
		i, ok := th.stack.Index(sp)
		if !ok {
			continue
		}
		if len(th.stack.Words)-i < frameWords ||
			th.stack.Words[i+frameMagicIdx] != frameMagic ||
			int(th.stack.Words[i+frameSlotIdx]) != slot {
			panic(fmt.Sprintf("host: corrupt frame at %#x", sp))
		}
		return slot, i
	}
	panic(fmt.Sprintf("host: no thread owns sp %#x", sp))
}

func (p *Port) run(slot int) {
	defer func() {
		p.back <- handoff{exited: true, value: recover()}
	}()
	p.start(slot)
}

// Resumes returns how many times the thread in slot has been entered.
func (p *Port) Resumes(slot int) int {
	th := &p.threads[slot]
	if !th.used {
		return 0
	}
	return int(th.stack.Words[len(th.stack.Words)-frameWords+frameResumeIdx])
}

func (p *Port) Yield() {
	if p.cur < 0 {
		panic("host: Yield outside a thread")
	}
	p.cycle()
	p.suspend()
}

func (p *Port) suspend() {
	th := &p.threads[p.cur]
	p.back <- handoff{}
	<-th.resume
}

func (p *Port) TickPreempt() {
	p.preempt.Store(true)
}

// ClearPreempt drops a preemption request left over from the last dispatch.
func (p *Port) ClearPreempt() {
	p.preempt.Store(false)
}

// Poll counts one virtual cycle and suspends the thread if a tick arrived
// since it was entered.
func (p *Port) Poll() {
	p.cycle()
	if p.preempt.CompareAndSwap(true, false) {
		p.suspend()
	}
}

func (p *Port) cycle() {
	if !p.Virtual() {
		return
	}
	p.cycles++
	if p.cycles%p.cyclesPerTick == 0 {
		p.tick()
	}
}

// Idle advances the virtual clock by one tick, or sleeps for a tick period
// on the wall clock.
func (p *Port) Idle() {
	if p.Virtual() {
		p.cycles += p.cyclesPerTick - p.cycles%p.cyclesPerTick
		p.tick()
		return
	}
	time.Sleep(p.tickPeriod)
}

func (p *Port) tick() {
	if p.clock == nil {
		return
	}
	p.mu.Lock()
	if p.masked {
		p.deferred++
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.clock()
}

func (p *Port) MaskTick() {
	p.mu.Lock()
	p.masked = true
	p.mu.Unlock()
}

func (p *Port) UnmaskTick() {
	p.mu.Lock()
	p.masked = false
	n := p.deferred
	p.deferred = 0
	p.mu.Unlock()
	for ; n > 0; n-- {
		p.clock()
	}
}

var (
	_ kernel.Port           = (*Port)(nil)
	_ kernel.Idler          = (*Port)(nil)
	_ kernel.Poller         = (*Port)(nil)
	_ kernel.TickMasker     = (*Port)(nil)
	_ kernel.PreemptClearer = (*Port)(nil)
)
