package kernel

import (
	"fmt"
	"sync/atomic"
)

// MinFreeWords is the stack headroom required above the synthetic frame.
const MinFreeWords = 16

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

// Tracer observes scheduling events. Calls happen on the kernel context.
type Tracer interface {
	Dispatched(id ThreadID, ms uint32)
	Suspended(id ThreadID, ms uint32, next State)
	Released(id ThreadID, ms uint32)
	Idle(ms uint32)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the kernel log sink.
func WithLogger(l Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithTracer installs a scheduling event observer.
func WithTracer(t Tracer) Option {
	return func(s *Scheduler) { s.trace = t }
}

// WithFaultHandler installs the fault handler. It runs at most once, on the
// first fault, and must not panic.
func WithFaultHandler(fn func(*Fault)) Option {
	return func(s *Scheduler) { s.onFault = fn }
}

// WithClock overrides the time source used by Context timed waits.
func WithClock(now func() uint32) Option {
	return func(s *Scheduler) { s.clock = now }
}

// Scheduler is a fixed-capacity priority round-robin thread scheduler.
//
// Threads are registered before the first Step and are never retired. The
// thread table and arena are only mutated on the kernel context; Tick is
// the one entry point that may run from interrupt context.
type Scheduler struct {
	port    Port
	log     Logger
	trace   Tracer
	onFault func(*Fault)
	clock   func() uint32

	threads [MaxThreads]Thread
	entries [MaxThreads]Entry
	ctxs    [MaxThreads]Context
	count   int
	current int
	last    [numPriorities]int

	arena Arena

	started    bool
	dispatches uint64
	idles      uint64

	ms      atomic.Uint32
	pending atomic.Uint32
	running atomic.Bool
	faulted atomic.Bool
}

// New creates a scheduler bound to a platform port.
func New(port Port, opts ...Option) *Scheduler {
	s := &Scheduler{port: port, current: -1}
	for i := range s.last {
		s.last[i] = -1
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = s.NowMs
	}
	return s
}

// Register adds a thread. It is only valid before the scheduler starts.
func (s *Scheduler) Register(spec ThreadSpec) (ThreadID, error) {
	if s.started {
		return 0, fmt.Errorf("register %q: %w", spec.Name, ErrStarted)
	}
	if spec.Entry == nil {
		return 0, fmt.Errorf("register %q: %w", spec.Name, ErrNilEntry)
	}
	if spec.Priority >= numPriorities {
		return 0, fmt.Errorf("register %q: priority %d: %w", spec.Name, spec.Priority, ErrInvalidPriority)
	}
	if s.count >= MaxThreads {
		return 0, fmt.Errorf("register %q: %d threads: %w", spec.Name, s.count, ErrTooManyThreads)
	}
	if need := s.port.FrameWords() + MinFreeWords; spec.StackWords < need {
		return 0, fmt.Errorf("register %q: %d words, need %d: %w", spec.Name, spec.StackWords, need, ErrStackTooSmall)
	}
	if spec.StackWords > MaxStackWords {
		return 0, fmt.Errorf("register %q: %d words: %w", spec.Name, spec.StackWords, ErrStackTooLarge)
	}

	stack, err := s.arena.Carve(spec.StackWords)
	if err != nil {
		return 0, fmt.Errorf("register %q: %d words, %d left: %w", spec.Name, spec.StackWords, s.arena.Remaining(), err)
	}

	id := ThreadID(s.count)
	t := &s.threads[id]
	*t = Thread{
		name:     spec.Name,
		stack:    stack,
		priority: spec.Priority,
		period:   spec.Period,
	}
	t.sp = s.port.BuildFrame(stack, int(id))
	if spec.Period == 0 {
		t.state = Runnable
	} else {
		t.state = Blocked
		t.counter = spec.Period
	}

	s.entries[id] = spec.Entry
	s.ctxs[id] = Context{s: s, id: id}
	s.last[spec.Priority] = int(id)
	s.count++

	s.logf("kernel: thread %d %q prio=%s period=%d stack=%d words", id, spec.Name, spec.Priority, spec.Period, len(stack.Words))
	return id, nil
}

// NextRunnable picks the next thread to dispatch.
//
// Levels are scanned High to Low. Within a level the scan starts just after
// the level's last dispatched thread, runs to the end of the table, then
// wraps from the start up to and including that thread.
func (s *Scheduler) NextRunnable() (ThreadID, bool) {
	for p := High; ; p-- {
		anchor := s.last[p]
		for i := anchor + 1; i < s.count; i++ {
			if s.eligible(i, p) {
				return ThreadID(i), true
			}
		}
		for i := 0; i <= anchor && i < s.count; i++ {
			if s.eligible(i, p) {
				return ThreadID(i), true
			}
		}
		if p == Low {
			return 0, false
		}
	}
}

func (s *Scheduler) eligible(i int, p Priority) bool {
	t := &s.threads[i]
	return t.priority == p && t.state == Runnable
}

// Dispatch switches into thread id and returns once it yields or is
// preempted.
func (s *Scheduler) Dispatch(id ThreadID) {
	t := &s.threads[id]
	s.checkStack(id)

	s.last[t.priority] = int(id)
	t.state = Running
	t.dispatches++
	s.dispatches++
	s.current = int(id)
	if s.trace != nil {
		s.trace.Dispatched(id, s.NowMs())
	}

	if c, ok := s.port.(PreemptClearer); ok {
		c.ClearPreempt()
	}
	s.running.Store(true)
	sp := s.port.EnterThread(t.sp)
	s.running.Store(false)

	t.sp = sp
	s.current = -1
	s.checkStack(id)

	// Ticks taken while the thread ran belong before its release point.
	s.drainTicks()

	if t.period > 0 {
		t.state = Blocked
		t.counter = t.period
	} else {
		t.state = Runnable
	}
	if s.trace != nil {
		s.trace.Suspended(id, s.NowMs(), t.state)
	}
}

// OnTick advances every release countdown by one tick.
func (s *Scheduler) OnTick() {
	for i := 0; i < s.count; i++ {
		t := &s.threads[i]
		if t.counter == 0 {
			continue
		}
		t.counter--
		if t.counter == 0 {
			t.state = Runnable
			if s.trace != nil {
				s.trace.Released(ThreadID(i), s.NowMs())
			}
		}
	}
}

// Tick is the system tick interrupt body: it advances the millisecond
// counter, queues one OnTick for the kernel and preempts the running thread.
func (s *Scheduler) Tick() {
	s.ms.Add(1)
	s.pending.Add(1)
	if s.running.Load() {
		s.port.TickPreempt()
	}
}

func (s *Scheduler) drainTicks() {
	for s.pending.Load() > 0 {
		s.pending.Add(^uint32(0))
		s.OnTick()
	}
}

// Step runs one scheduling pass and reports whether a thread was
// dispatched.
func (s *Scheduler) Step() bool {
	if !s.started {
		s.start()
	}
	s.drainTicks()

	id, ok := s.NextRunnable()
	if !ok {
		s.idles++
		if s.trace != nil {
			s.trace.Idle(s.NowMs())
		}
		if idler, ok := s.port.(Idler); ok {
			idler.Idle()
		}
		return false
	}
	s.Dispatch(id)
	return true
}

// Run schedules forever.
func (s *Scheduler) Run() {
	for {
		s.Step()
	}
}

func (s *Scheduler) start() {
	s.started = true
	s.logf("kernel: start threads=%d arena=%d/%d words", s.count, s.arena.Used(), s.arena.Cap())
	s.port.Init(s.startThread)
}

// startThread runs on the thread's own stack.
func (s *Scheduler) startThread(slot int) {
	id := ThreadID(slot)
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*Fault); ok {
				panic(f)
			}
			s.fatal(&Fault{Reason: FaultThreadPanic, Thread: id, Name: s.threads[id].name, Value: r})
		}
	}()
	s.entries[slot](&s.ctxs[slot])
	s.fatal(&Fault{Reason: FaultThreadReturned, Thread: id, Name: s.threads[id].name})
}

// NowMs returns the millisecond counter. It wraps at 2^32.
func (s *Scheduler) NowMs() uint32 {
	return s.ms.Load()
}

// Started reports whether the first Step has run.
func (s *Scheduler) Started() bool { return s.started }

// Count returns the number of registered threads.
func (s *Scheduler) Count() int { return s.count }

// Current returns the thread being dispatched, if any.
func (s *Scheduler) Current() (ThreadID, bool) {
	if s.current < 0 {
		return 0, false
	}
	return ThreadID(s.current), true
}

// Thread returns the control block for id.
func (s *Scheduler) Thread(id ThreadID) (*Thread, bool) {
	if int(id) >= s.count {
		return nil, false
	}
	return &s.threads[id], true
}

// Info returns a snapshot of thread id.
func (s *Scheduler) Info(id ThreadID) (ThreadInfo, bool) {
	t, ok := s.Thread(id)
	if !ok {
		return ThreadInfo{}, false
	}
	return t.info(id), true
}

// Overflowed reports whether thread id has overflowed its stack.
func (s *Scheduler) Overflowed(id ThreadID) bool {
	t, ok := s.Thread(id)
	return ok && t.Overflowed()
}

// Stats is a scheduler-wide snapshot.
type Stats struct {
	Threads    int
	Dispatches uint64
	Idles      uint64
	NowMs      uint32
	ArenaUsed  int
	ArenaAlloc int
	ArenaCap   int
}

// Stats returns scheduler-wide counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Threads:    s.count,
		Dispatches: s.dispatches,
		Idles:      s.idles,
		NowMs:      s.NowMs(),
		ArenaUsed:  s.arena.Used(),
		ArenaAlloc: s.arena.Allocated(),
		ArenaCap:   s.arena.Cap(),
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString(fmt.Sprintf(format, args...))
}
