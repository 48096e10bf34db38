//go:build ember.small

package kernel

const (
	MaxThreads    = 4
	ArenaWords    = 1536
	MaxStackWords = 512
	TickPeriodMs  = 1
)
