package kernel

// ThreadID is the index of a thread in the scheduler's table.
type ThreadID uint8

// Priority is a scheduling class. Higher levels always run first.
type Priority uint8

const (
	Low Priority = iota
	Normal
	High

	numPriorities
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// State is a thread's scheduling state.
type State uint8

const (
	Blocked State = iota
	Runnable
	Running
)

func (s State) String() string {
	switch s {
	case Blocked:
		return "blocked"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Entry is a thread body. It must never return.
type Entry func(ctx *Context)

// ThreadSpec describes a thread to register.
type ThreadSpec struct {
	Name       string
	Entry      Entry
	StackWords int
	Priority   Priority

	// Period is the release period in ticks; 0 means always eligible.
	Period uint32
}

// Thread is a thread control block.
type Thread struct {
	name     string
	stack    Stack
	sp       uintptr
	priority Priority
	period   uint32
	counter  uint32
	state    State

	dispatches uint32
}

func (t *Thread) Name() string           { return t.name }
func (t *Thread) StackPointer() uintptr  { return t.sp }
func (t *Thread) StackTop() uintptr      { return t.stack.Top }
func (t *Thread) StackSize() int         { return len(t.stack.Words) }
func (t *Thread) Priority() Priority     { return t.priority }
func (t *Thread) Period() uint32         { return t.period }
func (t *Thread) Counter() uint32        { return t.counter }
func (t *Thread) State() State           { return t.state }
func (t *Thread) Dispatches() uint32     { return t.dispatches }
func (t *Thread) stackBottom() uintptr   { return t.stack.Bottom() }
func (t *Thread) stackAboveTop() bool    { return t.sp > t.stack.Top }
func (t *Thread) freeWords() int         { return int((t.sp - t.stackBottom()) / WordBytes) }

// Overflowed reports whether the saved stack pointer has reached the
// bottom of the thread's slice.
func (t *Thread) Overflowed() bool {
	return t.sp <= t.stackBottom()
}

// ThreadInfo is a read-only snapshot of a thread.
type ThreadInfo struct {
	ID         ThreadID
	Name       string
	Priority   Priority
	Period     uint32
	Counter    uint32
	State      State
	StackWords int
	FreeWords  int
	StackPtr   uintptr
	StackTop   uintptr
	Dispatches uint32
}

func (t *Thread) info(id ThreadID) ThreadInfo {
	free := 0
	if !t.Overflowed() && !t.stackAboveTop() {
		free = t.freeWords()
	}
	return ThreadInfo{
		ID:         id,
		Name:       t.name,
		Priority:   t.priority,
		Period:     t.period,
		Counter:    t.counter,
		State:      t.state,
		StackWords: len(t.stack.Words),
		FreeWords:  free,
		StackPtr:   t.sp,
		StackTop:   t.stack.Top,
		Dispatches: t.dispatches,
	}
}
