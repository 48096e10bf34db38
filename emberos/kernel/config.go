//go:build !ember.small

package kernel

// Build-time capacities. Boards with less RAM build with -tags ember.small.
const (
	// MaxThreads is the capacity of the thread table.
	MaxThreads = 8

	// ArenaWords is the size of the shared stack arena, in words.
	ArenaWords = 8 * 1024

	// MaxStackWords bounds a single thread stack.
	MaxStackWords = 2048

	// TickPeriodMs is the system tick period.
	TickPeriodMs = 1
)
