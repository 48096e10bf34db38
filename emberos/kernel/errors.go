package kernel

import "errors"

var (
	ErrTooManyThreads  = errors.New("thread table full")
	ErrArenaExhausted  = errors.New("stack arena exhausted")
	ErrStackTooSmall   = errors.New("stack too small for initial frame")
	ErrStackTooLarge   = errors.New("stack exceeds MaxStackWords")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrNilEntry        = errors.New("nil thread entry")
	ErrStarted         = errors.New("scheduler already started")
)
