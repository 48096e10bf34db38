//go:build tinygo && cortexm

package cortexm

import (
	"runtime/volatile"
	"unsafe"
)

var (
	scb  = (*systemControl)(unsafe.Pointer(uintptr(0xE000ED00)))
	syst = (*sysTick)(unsafe.Pointer(uintptr(0xE000E010)))
)

type systemControl struct {
	CPUID volatile.Register32
	ICSR  volatile.Register32
	VTOR  volatile.Register32
	AIRCR volatile.Register32
	SCR   volatile.Register32
	CCR   volatile.Register32
	SHPR1 volatile.Register32
	SHPR2 volatile.Register32
	SHPR3 volatile.Register32
	SHCSR volatile.Register32
}

const (
	icsrPENDSVSET = 1 << 28
	icsrPENDSTSET = 1 << 26

	// SHPR2: SVCall priority in bits 31:24.
	shpr2SVCPos = 24
	// SHPR3: PendSV in bits 23:16, SysTick in bits 31:24.
	shpr3PendSVPos  = 16
	shpr3SysTickPos = 24

	priorityLowest = 0xFF
	priorityTick   = 0xC0
	prioritySVC    = 0x00
)

type sysTick struct {
	CSR   volatile.Register32
	RVR   volatile.Register32
	CVR   volatile.Register32
	CALIB volatile.Register32
}

const (
	systENABLE    = 1 << 0
	systTICKINT   = 1 << 1
	systCLKSOURCE = 1 << 2
	systCOUNTFLAG = 1 << 16

	systMaxReload = 0x00FFFFFF
)

func setPriority(reg *volatile.Register32, pos uint32, prio uint8) {
	reg.ReplaceBits(uint32(prio), 0xFF, uint8(pos))
}

// pendSV requests a switch back to the kernel.
func pendSV() {
	scb.ICSR.Set(icsrPENDSVSET)
}

func startSysTick(cpuHz uint32, periodMs uint32) {
	reload := cpuHz/1000*periodMs - 1
	if reload > systMaxReload {
		reload = systMaxReload
	}
	syst.CSR.Set(0)
	syst.RVR.Set(reload)
	syst.CVR.Set(0)
	syst.CSR.Set(systCLKSOURCE | systTICKINT | systENABLE)
}
