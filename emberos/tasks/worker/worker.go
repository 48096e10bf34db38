// Package worker runs an endless compute loop that never yields on its own.
// It only leaves the core when the tick preempts it.
package worker

import (
	"sync/atomic"

	"ember/emberos/kernel"
)

const StackWords = 256

type Task struct {
	rounds atomic.Uint32
	found  atomic.Uint32
	last   atomic.Uint32
}

func New() *Task {
	return &Task{}
}

func (t *Task) Spec() kernel.ThreadSpec {
	return kernel.ThreadSpec{
		Name:       "worker",
		Entry:      t.Run,
		StackWords: StackWords,
		Priority:   kernel.Low,
	}
}

// Rounds returns the number of candidates tested.
func (t *Task) Rounds() uint32 { return t.rounds.Load() }

// Primes returns the count of primes found and the largest one.
func (t *Task) Primes() (count, largest uint32) {
	return t.found.Load(), t.last.Load()
}

// Run searches for primes by trial division. The search restarts when the
// candidate wraps.
func (t *Task) Run(ctx *kernel.Context) {
	n := uint32(2)
	for {
		ctx.Poll()
		if isPrime(n) {
			t.found.Add(1)
			t.last.Store(n)
		}
		t.rounds.Add(1)
		n++
		if n < 2 {
			n = 2
			t.found.Store(0)
		}
	}
}

func isPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint32(3); d <= n/d; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
