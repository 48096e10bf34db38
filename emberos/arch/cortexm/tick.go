//go:build tinygo && cortexm

package cortexm

import "ember/emberos/kernel"

// SysTick_Handler is the tick interrupt. It only touches the scheduler's
// atomics and pends PendSV when a thread is running.
//
//export SysTick_Handler
func sysTickHandler() {
	kernel.Tick()
}
