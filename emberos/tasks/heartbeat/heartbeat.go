// Package heartbeat logs kernel uptime once per period.
package heartbeat

import (
	"fmt"

	"ember/emberos/kernel"
	"ember/hal"
)

const (
	StackWords = 256
	PeriodMs   = 1000
)

type Task struct {
	log   hal.Logger
	beats uint32
}

func New(log hal.Logger) *Task {
	return &Task{log: log}
}

func (t *Task) Spec() kernel.ThreadSpec {
	return kernel.ThreadSpec{
		Name:       "heartbeat",
		Entry:      t.Run,
		StackWords: StackWords,
		Priority:   kernel.High,
		Period:     PeriodMs / kernel.TickPeriodMs,
	}
}

// Beats returns the number of heartbeats logged.
func (t *Task) Beats() uint32 { return t.beats }

func (t *Task) Run(ctx *kernel.Context) {
	for {
		t.beats++
		if t.log != nil {
			st := ctx.Stats()
			t.log.WriteLineString(fmt.Sprintf("heartbeat: #%d up=%dms dispatches=%d idles=%d",
				t.beats, ctx.NowMs(), st.Dispatches, st.Idles))
		}
		ctx.Yield()
	}
}
