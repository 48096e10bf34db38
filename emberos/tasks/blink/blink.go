// Package blink toggles an LED every period.
package blink

import (
	"ember/emberos/kernel"
	"ember/hal"
)

const (
	StackWords = 128
	PeriodMs   = 500
)

type Task struct {
	led     hal.LED
	on      bool
	toggles uint32
}

func New(led hal.LED) *Task {
	return &Task{led: led}
}

func (t *Task) Spec() kernel.ThreadSpec {
	return kernel.ThreadSpec{
		Name:       "blink",
		Entry:      t.Run,
		StackWords: StackWords,
		Priority:   kernel.Normal,
		Period:     PeriodMs / kernel.TickPeriodMs,
	}
}

// Toggles returns the number of LED transitions.
func (t *Task) Toggles() uint32 { return t.toggles }

func (t *Task) Run(ctx *kernel.Context) {
	for {
		t.on = !t.on
		t.toggles++
		if t.led != nil {
			if t.on {
				t.led.High()
			} else {
				t.led.Low()
			}
		}
		ctx.Yield()
	}
}
