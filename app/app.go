package app

import (
	"fmt"

	"ember/emberos/kernel"
	"ember/emberos/tasks/blink"
	"ember/emberos/tasks/console"
	"ember/emberos/tasks/heartbeat"
	"ember/emberos/tasks/worker"
	"ember/hal"
)

type system struct {
	h    hal.HAL
	port kernel.Port
	s    *kernel.Scheduler

	heartbeat *heartbeat.Task
	blink     *blink.Task
	worker    *worker.Task
	console   *console.Task
}

type Config struct {
	// VirtualClock runs the host port on a virtual clock with this many
	// preemption points per tick. Zero follows the HAL time source.
	VirtualClock int

	// ExitOnFault makes the host step function return the fault instead of
	// holding the fault screen.
	ExitOnFault bool
}

type threadSpecer interface {
	Spec() kernel.ThreadSpec
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	bootScreen(h, "starting kernel")

	port := newPort(cfg)
	sys := &system{h: h, port: port}
	opts := []kernel.Option{kernel.WithFaultHandler(func(f *kernel.Fault) { showFault(h, f) })}
	if l := h.Logger(); l != nil {
		opts = append(opts, kernel.WithLogger(l))
	}
	sys.s = kernel.New(port, opts...)

	sys.heartbeat = heartbeat.New(h.Logger())
	sys.blink = blink.New(h.LED())
	sys.worker = worker.New()
	sys.console = console.New(h.Display(), sys.workerStatus)

	for _, t := range []threadSpecer{sys.heartbeat, sys.blink, sys.worker, sys.console} {
		spec := t.Spec()
		bootScreen(h, "register "+spec.Name)
		if _, err := sys.s.Register(spec); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	attachClock(sys, cfg)
	return sys, nil
}

func (sys *system) workerStatus() []string {
	n, largest := sys.worker.Primes()
	return []string{
		"",
		fmt.Sprintf("worker: %d primes, last %d", n, largest),
		fmt.Sprintf("beats %d toggles %d", sys.heartbeat.Beats(), sys.blink.Toggles()),
	}
}
