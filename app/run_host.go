//go:build !tinygo

package app

import (
	"errors"
	"time"

	"ember/emberos/arch/host"
	"ember/emberos/kernel"
	"ember/hal"
)

const (
	// stepSlice is the wall time one step call may spend in the kernel.
	stepSlice = 12 * time.Millisecond
	// virtualSteps is the number of scheduling passes per step call on the
	// virtual clock.
	virtualSteps = 256
)

func newPort(cfg Config) kernel.Port {
	if cfg.VirtualClock > 0 {
		return host.New(host.WithVirtualClock(cfg.VirtualClock))
	}
	return host.New()
}

// attachClock routes ticks through the port so Critical can mask them. The
// HAL time source drives the wall clock when it has one.
func attachClock(sys *system, cfg Config) {
	p := sys.port.(*host.Port)
	p.AttachClock(sys.s.Tick)
	if p.Virtual() {
		return
	}
	if t := sys.h.Time(); t != nil {
		if ch := t.Ticks(); ch != nil {
			p.TickFrom(ch)
		}
	}
}

// New initializes the OS with default config and returns its step function.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig initializes the OS and returns its step function. Each call
// runs the scheduler for a bounded slice. Boot errors and kernel faults
// leave the fault screen up.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	sys, err := newSystem(h, cfg)
	if err != nil {
		showBootError(h, err)
		if cfg.ExitOnFault {
			return func() error { return err }
		}
		return func() error { return nil }
	}
	kernel.Install(sys.s)
	return sys.stepper(cfg)
}

func (sys *system) stepper(cfg Config) func() error {
	var fault error
	return func() error {
		if fault != nil {
			if cfg.ExitOnFault {
				return fault
			}
			return nil
		}
		fault = sys.runSlice(cfg)
		if fault != nil && cfg.ExitOnFault {
			return fault
		}
		return nil
	}
}

// runSlice steps the scheduler and converts a kernel fault panic into an
// error. The fault handler has already drawn the fault screen.
func (sys *system) runSlice(cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var f *kernel.Fault
			if e, ok := r.(error); ok && errors.As(e, &f) {
				err = f
				return
			}
			panic(r)
		}
	}()

	if cfg.VirtualClock > 0 {
		for i := 0; i < virtualSteps; i++ {
			sys.s.Step()
		}
		return nil
	}
	deadline := time.Now().Add(stepSlice)
	for time.Now().Before(deadline) {
		sys.s.Step()
	}
	return nil
}

// Run starts the OS and blocks forever.
func Run(h hal.HAL) {
	step := New(h)
	for {
		if err := step(); err != nil {
			select {}
		}
	}
}
