//go:build tinygo && cortexm

// Package cortexm is the kernel port for ARMv6-M and ARMv7-M cores.
//
// The port owns SVCall, PendSV and SysTick. Build with -scheduler=none so
// the Go runtime does not compete for them.
package cortexm

/*
#include <stdint.h>

uint32_t ember_enter_thread(uint32_t sp);
uint32_t ember_thread_entry_addr(void);
uint32_t ember_thread_exit_addr(void);
*/
import "C"

import (
	"device/arm"
	"machine"

	"ember/emberos/arch/armframe"
	"ember/emberos/kernel"
)

// Port implements kernel.Port on the core it runs on.
type Port struct{}

// New returns the port. There is one core, so all Ports share its state.
func New() *Port { return &Port{} }

var start func(slot int)

//export emberThreadStart
func emberThreadStart(slot int32) {
	start(int(slot))
}

func (p *Port) FrameWords() int { return armframe.Words }

func (p *Port) BuildFrame(stack kernel.Stack, slot int) uintptr {
	return armframe.Write(stack, slot, uint32(C.ember_thread_entry_addr()), uint32(C.ember_thread_exit_addr()))
}

func (p *Port) Init(fn func(slot int)) {
	start = fn

	setPriority(&scb.SHPR2, shpr2SVCPos, prioritySVC)
	setPriority(&scb.SHPR3, shpr3PendSVPos, priorityLowest)
	setPriority(&scb.SHPR3, shpr3SysTickPos, priorityTick)

	startSysTick(machine.CPUFrequency(), kernel.TickPeriodMs)
}

func (p *Port) EnterThread(sp uintptr) uintptr {
	return uintptr(C.ember_enter_thread(C.uint32_t(sp)))
}

func (p *Port) Yield() {
	pendSV()
	arm.Asm("dsb")
	arm.Asm("isb")
}

func (p *Port) TickPreempt() {
	pendSV()
}

func (p *Port) Idle() {
	arm.Asm("wfi")
}

func (p *Port) Halt() {
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}

// MaskTick stops SysTick from raising its exception. The counter keeps
// running.
func (p *Port) MaskTick() {
	syst.CSR.ClearBits(systTICKINT)
}

// UnmaskTick re-enables the tick and pends one if the counter wrapped while
// masked. Further wraps in the same window are lost.
func (p *Port) UnmaskTick() {
	wrapped := syst.CSR.HasBits(systCOUNTFLAG)
	syst.CSR.SetBits(systTICKINT)
	if wrapped {
		scb.ICSR.Set(icsrPENDSTSET)
	}
}

var (
	_ kernel.Port       = (*Port)(nil)
	_ kernel.Idler      = (*Port)(nil)
	_ kernel.Halter     = (*Port)(nil)
	_ kernel.TickMasker = (*Port)(nil)
)
