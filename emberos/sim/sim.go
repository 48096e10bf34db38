//go:build !tinygo

package sim

import (
	"fmt"

	"ember/emberos/arch/host"
	"ember/emberos/kernel"
)

// Option configures a Sim.
type Option func(*config)

type config struct {
	log kernel.Logger
}

// WithLogger routes kernel log lines to l.
func WithLogger(l kernel.Logger) Option {
	return func(c *config) { c.log = l }
}

// Sim is one scheduler running a workload on a virtual clock.
//
// Thread goroutines stay parked when a Sim is dropped; a Sim is meant to
// live for one run.
type Sim struct {
	w     *Workload
	port  *host.Port
	s     *kernel.Scheduler
	rec   *Recorder
	work  []uint64
	fault *kernel.Fault
}

// New registers the workload's threads on a fresh scheduler.
func New(w *Workload, opts ...Option) (*Sim, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Sim{
		w:    w,
		port: host.New(host.WithVirtualClock(w.CyclesPerTick)),
		rec:  &Recorder{},
		work: make([]uint64, len(w.Threads)),
	}
	kopts := []kernel.Option{kernel.WithTracer(m.rec)}
	if cfg.log != nil {
		kopts = append(kopts, kernel.WithLogger(cfg.log))
	}
	m.s = kernel.New(m.port, kopts...)
	m.port.AttachClock(m.s.Tick)

	for i, tc := range w.Threads {
		prio, err := ParsePriority(tc.Priority)
		if err != nil {
			return nil, fmt.Errorf("thread %q: %w", tc.Name, err)
		}
		_, err = m.s.Register(kernel.ThreadSpec{
			Name:       tc.Name,
			Entry:      m.entry(i, tc),
			StackWords: tc.Stack,
			Priority:   prio,
			Period:     tc.Period,
		})
		if err != nil {
			return nil, fmt.Errorf("sim: %w", err)
		}
	}
	return m, nil
}

func (m *Sim) entry(i int, tc ThreadConfig) kernel.Entry {
	if tc.Mode == ModeSpin {
		return func(ctx *kernel.Context) {
			for {
				ctx.Poll()
				m.work[i]++
			}
		}
	}
	return func(ctx *kernel.Context) {
		for {
			for n := 0; n < tc.Work; n++ {
				ctx.Poll()
				m.work[i]++
			}
			ctx.Yield()
		}
	}
}

// Step runs one scheduling pass. After a kernel fault every call returns
// the fault.
func (m *Sim) Step() (dispatched bool, err error) {
	if m.fault != nil {
		return false, m.fault
	}
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*kernel.Fault)
			if !ok {
				panic(r)
			}
			m.fault = f
			err = f
		}
	}()
	return m.s.Step(), nil
}

// RunUntil steps until the millisecond counter reaches ms.
func (m *Sim) RunUntil(ms uint32) error {
	for int32(m.s.NowMs()-ms) < 0 {
		if _, err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Advance runs for n more ticks.
func (m *Sim) Advance(n uint32) error {
	return m.RunUntil(m.s.NowMs() + n)
}

// Run executes the workload for its configured ticks and reports.
func (m *Sim) Run() (*Report, error) {
	if err := m.RunUntil(m.w.Ticks); err != nil {
		return nil, err
	}
	return m.Report(), nil
}

// NowMs returns the simulated time.
func (m *Sim) NowMs() uint32 { return m.s.NowMs() }

// Workload returns the workload being run.
func (m *Sim) Workload() *Workload { return m.w }

// Scheduler returns the scheduler under simulation.
func (m *Sim) Scheduler() *kernel.Scheduler { return m.s }

// Recorder returns the event trace.
func (m *Sim) Recorder() *Recorder { return m.rec }

// Work returns the work units thread i has completed.
func (m *Sim) Work(i int) uint64 { return m.work[i] }

// Cycles returns the preemption points passed so far.
func (m *Sim) Cycles() int { return m.port.Cycles() }
