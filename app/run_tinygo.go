//go:build tinygo && cortexm

package app

import (
	"ember/emberos/arch/cortexm"
	"ember/emberos/kernel"
	"ember/hal"
)

func newPort(Config) kernel.Port {
	return cortexm.New()
}

// SysTick drives the scheduler directly through kernel.Tick.
func attachClock(*system, Config) {}

// Run starts the OS and never returns.
func Run(h hal.HAL) {
	sys, err := newSystem(h, Config{})
	if err != nil {
		showBootError(h, err)
		cortexm.New().Halt()
	}
	kernel.Install(sys.s)
	bootScreen(h, "running")
	sys.s.Run()
}
