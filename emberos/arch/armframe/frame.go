// Package armframe lays out Cortex-M thread frames.
//
// A suspended thread's stack holds, from its saved stack pointer upward,
// the software-saved registers pushed by the switch handler followed by
// the exception frame pushed by the hardware on exception entry. The same
// layout is used for ARMv6-M and ARMv7-M without FP context.
package armframe

import "ember/emberos/kernel"

// Software is the part of the frame saved by the switch handler.
type Software struct {
	R4, R5, R6, R7, R8, R9, R10, R11 uint32

	// ExcReturn is the EXC_RETURN value the thread resumes with.
	ExcReturn uint32
}

// Hardware is the exception frame stacked by the core.
type Hardware struct {
	R0, R1, R2, R3, R12 uint32
	LR                  uint32
	PC                  uint32
	PSR                 uint32
}

const (
	SoftwareWords = 9
	HardwareWords = 8
	Words         = SoftwareWords + HardwareWords

	// PSRThumb is the xPSR value for a fresh thread: only the Thumb bit.
	PSRThumb = 0x01000000

	// ExcReturnThreadPSP returns to thread mode on the process stack with
	// no FP context.
	ExcReturnThreadPSP = 0xFFFFFFFD

	// ExcReturnThreadMSP returns to thread mode on the main stack.
	ExcReturnThreadMSP = 0xFFFFFFF9

	// fillPattern marks unused registers of a fresh frame.
	fillPattern = 0xDEADBEEF
)

// Frame is a complete initial frame.
type Frame struct {
	Software
	Hardware
}

// Initial returns the frame a new thread starts from: the exception return
// lands on pc with slot in R0 and lr as the return address.
func Initial(slot int, pc, lr uint32) Frame {
	f := Frame{
		Software: Software{
			R4: fillPattern, R5: fillPattern, R6: fillPattern, R7: fillPattern,
			R8: fillPattern, R9: fillPattern, R10: fillPattern, R11: fillPattern,
			ExcReturn: ExcReturnThreadPSP,
		},
		Hardware: Hardware{
			R0:  uint32(slot),
			R1:  fillPattern,
			R2:  fillPattern,
			R3:  fillPattern,
			R12: fillPattern,
			LR:  lr,
			// The stacked return address is halfword aligned; the Thumb
			// state comes from PSR.
			PC:  pc &^ 1,
			PSR: PSRThumb,
		},
	}
	return f
}

// Encode returns the frame as words in ascending address order.
func (f Frame) Encode() [Words]uint32 {
	return [Words]uint32{
		f.R4, f.R5, f.R6, f.R7, f.R8, f.R9, f.R10, f.R11, f.ExcReturn,
		f.R0, f.R1, f.R2, f.R3, f.R12, f.LR, f.PC, f.PSR,
	}
}

// Decode reads a frame from words in ascending address order.
func Decode(w []uint32) (Frame, bool) {
	if len(w) < Words {
		return Frame{}, false
	}
	return Frame{
		Software: Software{
			R4: w[0], R5: w[1], R6: w[2], R7: w[3],
			R8: w[4], R9: w[5], R10: w[6], R11: w[7],
			ExcReturn: w[8],
		},
		Hardware: Hardware{
			R0: w[9], R1: w[10], R2: w[11], R3: w[12], R12: w[13],
			LR: w[14], PC: w[15], PSR: w[16],
		},
	}, true
}

// Write stores the initial frame for slot at the top of stack and returns
// the thread's initial stack pointer.
//
// The hardware part starts 8-byte aligned, as the core requires when
// unstacking with STKALIGN set.
func Write(stack kernel.Stack, slot int, pc, lr uint32) uintptr {
	words := Initial(slot, pc, lr).Encode()
	i := len(stack.Words) - Words
	copy(stack.Words[i:], words[:])
	return stack.Addr(i)
}
