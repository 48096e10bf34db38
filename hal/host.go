//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	t      *hostTime
}

// New returns a host HAL implementation that logs to stdout.
func New() HAL {
	return newHostHAL(os.Stdout)
}

func newHostHAL(w io.Writer) *hostHAL {
	logger := &hostLogger{w: w}
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		fb:     newHostFramebuffer(320, 320),
		t:      newHostTime(),
	}
}

// stepTime feeds n ticks of wall time and logs ticks the kernel did not
// take in time.
func (h *hostHAL) stepTime(n uint64) {
	h.t.step(n)
	if d := h.t.takeDropped(); d > 0 {
		h.logger.WriteLineString(fmt.Sprintf("hal: time: dropped %d ticks", d))
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostLED logs edges only; the state is read by the window strip.
type hostLED struct {
	on     atomic.Bool
	logger *hostLogger
}

func (l *hostLED) High() {
	if !l.on.Swap(true) {
		l.logger.WriteLineString("led: HIGH")
	}
}

func (l *hostLED) Low() {
	if l.on.Swap(false) {
		l.logger.WriteLineString("led: LOW")
	}
}

func (l *hostLED) On() bool { return l.on.Load() }
