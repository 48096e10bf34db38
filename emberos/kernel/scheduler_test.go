package kernel

import (
	"errors"
	"testing"
)

func newTestScheduler(opts ...Option) (*Scheduler, *fakePort) {
	p := &fakePort{}
	return New(p, opts...), p
}

func mustRegister(t *testing.T, s *Scheduler, spec ThreadSpec) ThreadID {
	t.Helper()
	if spec.Entry == nil {
		spec.Entry = idleEntry
	}
	id, err := s.Register(spec)
	if err != nil {
		t.Fatalf("Register(%q): %v", spec.Name, err)
	}
	return id
}

func expectFault(t *testing.T, reason FaultReason, fn func()) *Fault {
	t.Helper()
	var got *Fault
	func() {
		defer func() {
			r := recover()
			f, ok := r.(*Fault)
			if !ok {
				t.Fatalf("recovered %v (%T), want *Fault", r, r)
			}
			got = f
		}()
		fn()
	}()
	if got.Reason != reason {
		t.Fatalf("fault reason = %s, want %s", got.Reason, reason)
	}
	return got
}

func TestRegisterScenarioAllocation(t *testing.T) {
	s, _ := newTestScheduler()
	a := mustRegister(t, s, ThreadSpec{Name: "A", StackWords: 256, Priority: Normal})
	b := mustRegister(t, s, ThreadSpec{Name: "B", StackWords: 256, Priority: Normal, Period: 500})

	if got := s.Stats().ArenaAlloc; got != 512 {
		t.Fatalf("allocated = %d, want 512", got)
	}

	ta, _ := s.Thread(a)
	tb, _ := s.Thread(b)
	if ta.State() != Runnable {
		t.Fatalf("A state = %s, want runnable", ta.State())
	}
	if tb.State() != Blocked || tb.Counter() != 500 {
		t.Fatalf("B state = %s counter = %d, want blocked/500", tb.State(), tb.Counter())
	}
	if ta.StackTop() > tb.StackTop()-uintptr(tb.StackSize())*WordBytes {
		t.Fatal("stacks of A and B overlap")
	}
	for _, th := range []*Thread{ta, tb} {
		bottom := th.StackTop() - uintptr(th.StackSize())*WordBytes
		if th.StackPointer() <= bottom || th.StackPointer() > th.StackTop() {
			t.Fatalf("%s: sp %#x outside (%#x, %#x]", th.Name(), th.StackPointer(), bottom, th.StackTop())
		}
	}
	if s.last[Normal] != int(b) {
		t.Fatalf("last[normal] = %d, want %d", s.last[Normal], b)
	}
}

func TestRegisterArenaNeverExceedsCapacity(t *testing.T) {
	s, _ := newTestScheduler()
	sizes := []int{MaxStackWords, MaxStackWords/3 + 1, MaxStackWords, MaxStackWords/2 + 1, MaxStackWords, MaxStackWords, 300, 90}

	var err error
	for i, n := range sizes {
		_, err = s.Register(ThreadSpec{Name: "t", Entry: idleEntry, StackWords: n, Priority: Priority(i % 3)})
		st := s.Stats()
		if st.ArenaAlloc > st.ArenaCap || st.ArenaUsed > st.ArenaCap {
			t.Fatalf("after %d registrations: alloc=%d used=%d cap=%d", i+1, st.ArenaAlloc, st.ArenaUsed, st.ArenaCap)
		}
		if err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected the arena to run out")
	}
	if !errors.Is(err, ErrArenaExhausted) && !errors.Is(err, ErrTooManyThreads) {
		t.Fatalf("error = %v, want ErrArenaExhausted", err)
	}
}

func TestRegisterErrors(t *testing.T) {
	minWords := (&fakePort{}).FrameWords() + MinFreeWords

	tests := []struct {
		name string
		spec ThreadSpec
		want error
	}{
		{"nil entry", ThreadSpec{StackWords: 64}, ErrNilEntry},
		{"bad priority", ThreadSpec{Entry: idleEntry, StackWords: 64, Priority: numPriorities}, ErrInvalidPriority},
		{"too small", ThreadSpec{Entry: idleEntry, StackWords: minWords - 1}, ErrStackTooSmall},
		{"too large", ThreadSpec{Entry: idleEntry, StackWords: MaxStackWords + 1}, ErrStackTooLarge},
	}
	for _, tt := range tests {
		s, _ := newTestScheduler()
		if _, err := s.Register(tt.spec); !errors.Is(err, tt.want) {
			t.Fatalf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
		if s.Count() != 0 || s.Stats().ArenaUsed != 0 {
			t.Fatalf("%s: rejected registration changed state", tt.name)
		}
	}
}

func TestRegisterTooManyThreads(t *testing.T) {
	s, _ := newTestScheduler()
	minWords := (&fakePort{}).FrameWords() + MinFreeWords
	for i := 0; i < MaxThreads; i++ {
		mustRegister(t, s, ThreadSpec{Name: "t", StackWords: minWords})
	}
	_, err := s.Register(ThreadSpec{Name: "extra", Entry: idleEntry, StackWords: minWords})
	if !errors.Is(err, ErrTooManyThreads) {
		t.Fatalf("error = %v, want ErrTooManyThreads", err)
	}
	if s.Count() != MaxThreads {
		t.Fatalf("Count = %d, want %d", s.Count(), MaxThreads)
	}
}

func TestRegisterAfterStart(t *testing.T) {
	s, _ := newTestScheduler()
	mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64})
	s.Step()

	_, err := s.Register(ThreadSpec{Name: "late", Entry: idleEntry, StackWords: 64})
	if !errors.Is(err, ErrStarted) {
		t.Fatalf("error = %v, want ErrStarted", err)
	}
}

func TestNextRunnableNoneWhenBlocked(t *testing.T) {
	s, _ := newTestScheduler()
	if _, ok := s.NextRunnable(); ok {
		t.Fatal("empty scheduler returned a thread")
	}
	mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64, Period: 10})
	mustRegister(t, s, ThreadSpec{Name: "b", StackWords: 64, Priority: High, Period: 3})
	if id, ok := s.NextRunnable(); ok {
		t.Fatalf("NextRunnable = %d with every thread blocked", id)
	}
}

func TestRoundRobinCyclicOrder(t *testing.T) {
	for start := -1; start < 3; start++ {
		s, _ := newTestScheduler()
		for i := 0; i < 3; i++ {
			mustRegister(t, s, ThreadSpec{Name: "rr", StackWords: 64, Priority: Normal})
		}
		s.last[Normal] = start

		want := (start + 1) % 3
		for n := 0; n < 9; n++ {
			id, ok := s.NextRunnable()
			if !ok {
				t.Fatalf("start %d: no runnable thread", start)
			}
			if int(id) != want {
				t.Fatalf("start %d, pick %d: got thread %d, want %d", start, n, id, want)
			}
			s.Dispatch(id)
			want = (want + 1) % 3
		}
	}
}

func TestRoundRobinSkipsOtherLevels(t *testing.T) {
	s, _ := newTestScheduler()
	n0 := mustRegister(t, s, ThreadSpec{Name: "n0", StackWords: 64, Priority: Normal})
	mustRegister(t, s, ThreadSpec{Name: "low", StackWords: 64, Priority: Low})
	n2 := mustRegister(t, s, ThreadSpec{Name: "n2", StackWords: 64, Priority: Normal})

	var got []ThreadID
	for i := 0; i < 4; i++ {
		id, _ := s.NextRunnable()
		got = append(got, id)
		s.Dispatch(id)
	}
	want := []ThreadID{n0, n2, n0, n2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPriorityPrecedence(t *testing.T) {
	s, _ := newTestScheduler()
	low := mustRegister(t, s, ThreadSpec{Name: "low", StackWords: 64, Priority: Low, Period: 1})
	normal := mustRegister(t, s, ThreadSpec{Name: "normal", StackWords: 64, Priority: Normal, Period: 1})
	high := mustRegister(t, s, ThreadSpec{Name: "high", StackWords: 64, Priority: High, Period: 1})

	for round := 0; round < 3; round++ {
		s.OnTick()
		for _, want := range []ThreadID{high, normal, low} {
			id, ok := s.NextRunnable()
			if !ok || id != want {
				t.Fatalf("round %d: got %d (%v), want %d", round, id, ok, want)
			}
			s.Dispatch(id)
		}
		if id, ok := s.NextRunnable(); ok {
			t.Fatalf("round %d: thread %d runnable before the next tick", round, id)
		}
	}
}

func TestAlwaysRunnableHighStarvesLower(t *testing.T) {
	s, _ := newTestScheduler()
	mustRegister(t, s, ThreadSpec{Name: "low", StackWords: 64, Priority: Low})
	mustRegister(t, s, ThreadSpec{Name: "normal", StackWords: 64, Priority: Normal})
	high := mustRegister(t, s, ThreadSpec{Name: "high", StackWords: 64, Priority: High})

	for i := 0; i < 10; i++ {
		id, _ := s.NextRunnable()
		if id != high {
			t.Fatalf("pick %d: got %d, want high", i, id)
		}
		s.Dispatch(id)
	}
}

func TestPeriodicReleaseScenario(t *testing.T) {
	s, _ := newTestScheduler()
	a := mustRegister(t, s, ThreadSpec{Name: "A", StackWords: 256, Priority: Normal})
	b := mustRegister(t, s, ThreadSpec{Name: "B", StackWords: 256, Priority: Normal, Period: 500})

	for tick := 0; tick < 500; tick++ {
		id, ok := s.NextRunnable()
		if !ok || id != a {
			t.Fatalf("after %d ticks: got %d (%v), want A", tick, id, ok)
		}
		s.Dispatch(id)
		s.OnTick()
	}

	id, _ := s.NextRunnable()
	if id != b {
		t.Fatalf("after 500 ticks: got %d, want B", id)
	}
	s.Dispatch(b)

	id, _ = s.NextRunnable()
	if id != a {
		t.Fatalf("after B dispatch: got %d, want A", id)
	}

	// B is not selectable again for 499 ticks after its dispatch ended.
	for tick := 1; tick < 500; tick++ {
		s.OnTick()
		id, _ := s.NextRunnable()
		if id == b {
			t.Fatalf("B re-selected %d ticks after dispatch", tick)
		}
		s.Dispatch(id)
	}
	s.OnTick()
	if id, _ := s.NextRunnable(); id != b {
		t.Fatalf("B not selected on the 500th tick, got %d", id)
	}
}

func TestPeriodZeroRunnableAfterDispatch(t *testing.T) {
	s, _ := newTestScheduler()
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64})
	s.Dispatch(id)
	th, _ := s.Thread(id)
	if th.State() != Runnable {
		t.Fatalf("state = %s, want runnable", th.State())
	}
	if th.Dispatches() != 1 {
		t.Fatalf("dispatches = %d, want 1", th.Dispatches())
	}
}

func TestDispatchMarksRunning(t *testing.T) {
	s, p := newTestScheduler()
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64, Period: 7})
	th, _ := s.Thread(id)
	sp := th.StackPointer()

	p.enter = func(got uintptr) uintptr {
		if got != sp {
			t.Fatalf("EnterThread sp = %#x, want %#x", got, sp)
		}
		if th.State() != Running {
			t.Fatalf("state during dispatch = %s", th.State())
		}
		if cur, ok := s.Current(); !ok || cur != id {
			t.Fatalf("Current = %d, %v", cur, ok)
		}
		return got - 8*WordBytes
	}
	s.Dispatch(id)

	if th.StackPointer() != sp-8*WordBytes {
		t.Fatalf("sp not updated from EnterThread")
	}
	if th.State() != Blocked || th.Counter() != 7 {
		t.Fatalf("after dispatch: %s counter %d, want blocked/7", th.State(), th.Counter())
	}
	if _, ok := s.Current(); ok {
		t.Fatal("Current still set after dispatch")
	}
}

func TestOverflowDetector(t *testing.T) {
	s, _ := newTestScheduler()
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64})
	th, _ := s.Thread(id)
	bottom := th.StackTop() - uintptr(th.StackSize())*WordBytes

	th.sp = bottom
	if !s.Overflowed(id) {
		t.Fatal("sp == bottom should report overflow")
	}
	th.sp = bottom + 1
	if s.Overflowed(id) {
		t.Fatal("sp == bottom+1 should not report overflow")
	}
}

func TestDispatchOverflowIsFatal(t *testing.T) {
	var handled []*Fault
	s, p := newTestScheduler(WithFaultHandler(func(f *Fault) { handled = append(handled, f) }))
	id := mustRegister(t, s, ThreadSpec{Name: "deep", StackWords: 64})
	th, _ := s.Thread(id)
	bottom := th.StackTop() - uintptr(th.StackSize())*WordBytes

	p.enter = func(uintptr) uintptr { return bottom - WordBytes }
	f := expectFault(t, FaultStackOverflow, func() { s.Dispatch(id) })
	if f.Thread != id || f.Name != "deep" || f.Bottom != bottom {
		t.Fatalf("fault = %+v", f)
	}
	if !s.Faulted() || len(handled) != 1 {
		t.Fatalf("faulted=%v handled=%d", s.Faulted(), len(handled))
	}

	// Dispatching an overflowed thread faults again before entering it.
	entered := len(p.entered)
	expectFault(t, FaultStackOverflow, func() { s.Dispatch(id) })
	if len(p.entered) != entered {
		t.Fatal("overflowed thread was entered")
	}
	if len(handled) != 1 {
		t.Fatalf("handler ran %d times, want once", len(handled))
	}
}

func TestDispatchStackPointerAboveTopIsFatal(t *testing.T) {
	s, p := newTestScheduler()
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64})
	th, _ := s.Thread(id)
	p.enter = func(uintptr) uintptr { return th.StackTop() + WordBytes }
	expectFault(t, FaultStackPointer, func() { s.Dispatch(id) })
}

func TestTickDuringDispatch(t *testing.T) {
	s, p := newTestScheduler()
	a := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64, Period: 2})
	b := mustRegister(t, s, ThreadSpec{Name: "b", StackWords: 64, Period: 1})

	// Release a, then run it while one tick fires.
	s.OnTick()
	s.OnTick()
	p.enter = func(sp uintptr) uintptr {
		s.Tick()
		return sp
	}
	s.Dispatch(a)

	if p.preempts != 1 {
		t.Fatalf("preempts = %d, want 1", p.preempts)
	}
	if s.NowMs() != 1 {
		t.Fatalf("NowMs = %d, want 1", s.NowMs())
	}
	ta, _ := s.Thread(a)
	if ta.Counter() != 2 {
		t.Fatalf("a counter = %d, want a full period after its dispatch", ta.Counter())
	}
	tb, _ := s.Thread(b)
	if tb.State() != Runnable {
		t.Fatalf("b state = %s, want runnable", tb.State())
	}
}

func TestTickWhileKernelRunsDoesNotPreempt(t *testing.T) {
	s, p := newTestScheduler()
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64, Period: 3})
	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if p.preempts != 0 {
		t.Fatalf("preempts = %d with no thread running", p.preempts)
	}
	if !s.Step() {
		t.Fatal("Step did not drain pending ticks before selecting")
	}
	if th, _ := s.Thread(id); th.Dispatches() != 1 {
		t.Fatalf("dispatches = %d", th.Dispatches())
	}
}

func TestStepIdles(t *testing.T) {
	s, p := newTestScheduler()
	mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64, Period: 5})

	for i := 0; i < 3; i++ {
		if s.Step() {
			t.Fatal("Step dispatched a blocked thread")
		}
	}
	if p.inits != 1 {
		t.Fatalf("Init called %d times, want 1", p.inits)
	}
	if p.idles != 3 || s.Stats().Idles != 3 {
		t.Fatalf("idles = %d/%d, want 3", p.idles, s.Stats().Idles)
	}
}

func TestNowMsFreeFunction(t *testing.T) {
	s, _ := newTestScheduler()
	Install(s)
	defer installed.Store(nil)

	for i := uint32(1); i <= 25; i++ {
		Tick()
		if s.NowMs() != i || NowMs() != i {
			t.Fatalf("tick %d: s.NowMs=%d NowMs=%d", i, s.NowMs(), NowMs())
		}
	}
}

func TestInstallTwicePanics(t *testing.T) {
	s, _ := newTestScheduler()
	Install(s)
	defer installed.Store(nil)

	defer func() {
		if recover() == nil {
			t.Fatal("second Install did not panic")
		}
	}()
	Install(s)
}

func TestThreadReturnIsFatal(t *testing.T) {
	s, p := newTestScheduler()
	mustRegister(t, s, ThreadSpec{Name: "oneshot", StackWords: 64, Entry: func(*Context) {}})
	s.Step()

	f := expectFault(t, FaultThreadReturned, func() { p.start(0) })
	if f.Name != "oneshot" {
		t.Fatalf("fault name = %q", f.Name)
	}
}

func TestThreadPanicIsFatal(t *testing.T) {
	var seen *Fault
	s, p := newTestScheduler(WithFaultHandler(func(f *Fault) { seen = f }))
	mustRegister(t, s, ThreadSpec{Name: "boom", StackWords: 64, Entry: func(*Context) { panic("boom") }})
	s.Step()

	f := expectFault(t, FaultThreadPanic, func() { p.start(0) })
	if f.Value != "boom" || seen != f {
		t.Fatalf("fault = %+v, handler saw %v", f, seen)
	}
	if len(f.Stack) == 0 {
		t.Fatal("fault has no stack trace")
	}
}

type clearingPort struct {
	fakePort
	s              *Scheduler
	clears         int
	runningAtClear bool
}

func (p *clearingPort) ClearPreempt() {
	p.clears++
	p.runningAtClear = p.s.running.Load()
}

func TestDispatchClearsPreemptBeforeRunning(t *testing.T) {
	p := &clearingPort{}
	s := New(p)
	p.s = s
	id := mustRegister(t, s, ThreadSpec{Name: "a", StackWords: 64})

	runningAtEnter := false
	p.enter = func(sp uintptr) uintptr {
		runningAtEnter = s.running.Load()
		return sp
	}
	s.Dispatch(id)

	if p.clears != 1 {
		t.Fatalf("clears = %d, want 1", p.clears)
	}
	if p.runningAtClear {
		t.Fatal("preempt cleared after the thread was published as running")
	}
	if !runningAtEnter {
		t.Fatal("thread entered without running set")
	}
}
