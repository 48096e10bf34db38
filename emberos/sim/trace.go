//go:build !tinygo

package sim

import (
	"fmt"

	"ember/emberos/kernel"
)

// EventKind classifies a trace event.
type EventKind uint8

const (
	EventDispatch EventKind = iota
	EventSuspend
	EventRelease
	EventIdle
)

func (k EventKind) String() string {
	switch k {
	case EventDispatch:
		return "dispatch"
	case EventSuspend:
		return "suspend"
	case EventRelease:
		return "release"
	case EventIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Event is one scheduling event. Thread is meaningless for idle events and
// Next is only set on suspends.
type Event struct {
	Kind   EventKind
	Ms     uint32
	Thread kernel.ThreadID
	Next   kernel.State
}

func (e Event) String() string {
	switch e.Kind {
	case EventIdle:
		return fmt.Sprintf("%8d idle", e.Ms)
	case EventSuspend:
		return fmt.Sprintf("%8d suspend  t%d -> %s", e.Ms, e.Thread, e.Next)
	default:
		return fmt.Sprintf("%8d %-8s t%d", e.Ms, e.Kind, e.Thread)
	}
}

// Recorder is a kernel.Tracer that keeps every event in order.
type Recorder struct {
	events []Event
}

func (r *Recorder) Dispatched(id kernel.ThreadID, ms uint32) {
	r.events = append(r.events, Event{Kind: EventDispatch, Ms: ms, Thread: id})
}

func (r *Recorder) Suspended(id kernel.ThreadID, ms uint32, next kernel.State) {
	r.events = append(r.events, Event{Kind: EventSuspend, Ms: ms, Thread: id, Next: next})
}

func (r *Recorder) Released(id kernel.ThreadID, ms uint32) {
	r.events = append(r.events, Event{Kind: EventRelease, Ms: ms, Thread: id})
}

func (r *Recorder) Idle(ms uint32) {
	r.events = append(r.events, Event{Kind: EventIdle, Ms: ms})
}

// Events returns the recorded events. The slice is shared.
func (r *Recorder) Events() []Event { return r.events }

// Len returns the number of recorded events.
func (r *Recorder) Len() int { return len(r.events) }

// Since returns the events recorded after the first n.
func (r *Recorder) Since(n int) []Event {
	if n >= len(r.events) {
		return nil
	}
	return r.events[n:]
}

var _ kernel.Tracer = (*Recorder)(nil)
