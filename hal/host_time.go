//go:build !tinygo

package hal

import "time"

const hostTickDur = time.Millisecond

// hostTime turns wall-clock progress, sampled by the runner loop, into a
// millisecond tick stream. Ticks are dropped when the consumer falls behind.
type hostTime struct {
	ch      chan uint64
	seq      uint64
	dropped  uint64
	reported uint64

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// step emits the ticks elapsed since the previous call. The first call
// emits n ticks to prime the stream.
func (t *hostTime) step(n uint64) {
	t.advance(time.Now(), n)
}

func (t *hostTime) advance(now time.Time, n uint64) {
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / hostTickDur)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % hostTickDur
	t.stepN(ticks)
}

// takeDropped returns the ticks dropped since the previous call.
func (t *hostTime) takeDropped() uint64 {
	n := t.dropped - t.reported
	t.reported = t.dropped
	return n
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
			t.dropped++
		}
	}
}
