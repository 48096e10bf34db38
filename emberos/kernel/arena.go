package kernel

import "unsafe"

// Word is one machine word of thread stack.
type Word = uint32

// WordBytes is the size of a Word in bytes.
const WordBytes = 4

// stackAlign is the AAPCS stack alignment at a public interface.
const stackAlign = 8

// Stack is one carved slice of the arena.
//
// Stacks are full-descending: Top is one past the highest word and the
// stack pointer moves down from it.
type Stack struct {
	Words []Word
	Top   uintptr
}

// Bottom returns the address of the lowest word.
func (s Stack) Bottom() uintptr {
	return s.Top - uintptr(len(s.Words))*WordBytes
}

// Addr returns the address of Words[i].
func (s Stack) Addr(i int) uintptr {
	return s.Bottom() + uintptr(i)*WordBytes
}

// Index maps an address inside the stack back to a word index.
func (s Stack) Index(addr uintptr) (int, bool) {
	bottom := s.Bottom()
	if addr < bottom || addr >= s.Top {
		return 0, false
	}
	off := addr - bottom
	if off%WordBytes != 0 {
		return 0, false
	}
	return int(off / WordBytes), true
}

// Arena is the static stack buffer all thread stacks are carved from.
//
// Carving is append-only; nothing is ever returned.
type Arena struct {
	words     [ArenaWords]Word
	cursor    int
	allocated int
}

func (a *Arena) base() uintptr {
	return uintptr(unsafe.Pointer(&a.words[0]))
}

// Cap returns the arena capacity in words.
func (a *Arena) Cap() int { return len(a.words) }

// Used returns the number of words consumed, alignment padding included.
func (a *Arena) Used() int { return a.cursor }

// Allocated returns the sum of all carved stack sizes.
func (a *Arena) Allocated() int { return a.allocated }

// Remaining returns the words still available for carving.
func (a *Arena) Remaining() int { return len(a.words) - a.cursor }

// Carve bump-allocates the next stack of n words.
//
// n is rounded up to an even number of words and the slice is placed so
// that its top is 8-byte aligned.
func (a *Arena) Carve(n int) (Stack, error) {
	if n <= 0 {
		return Stack{}, ErrStackTooSmall
	}
	if n%2 != 0 {
		n++
	}

	start := a.cursor
	if (a.base()+uintptr(start)*WordBytes)%stackAlign != 0 {
		start++
	}
	end := start + n
	if end > len(a.words) {
		return Stack{}, ErrArenaExhausted
	}

	a.cursor = end
	a.allocated += n
	return Stack{
		Words: a.words[start:end:end],
		Top:   a.base() + uintptr(end)*WordBytes,
	}, nil
}
