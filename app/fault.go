package app

import (
	"fmt"
	"image/color"
	"strings"

	"ember/emberos/fbdisplay"
	"ember/emberos/kernel"
	"ember/hal"

	"tinygo.org/x/tinyfont/proggy"
)

var (
	faultBG = color.RGBA{R: 0x80, G: 0x00, B: 0x00, A: 0xFF}
	faultFG = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// faultLines describes f for the log and the fault screen.
func faultLines(f *kernel.Fault) []string {
	lines := []string{
		"Ember fault:",
		"reason: " + f.Reason.String(),
		fmt.Sprintf("thread: %d (%s)", f.Thread, f.Name),
	}
	switch f.Reason {
	case kernel.FaultStackOverflow, kernel.FaultStackPointer:
		lines = append(lines,
			fmt.Sprintf("sp: %#x", f.SP),
			fmt.Sprintf("stack: %#x..%#x", f.Bottom, f.Top))
	case kernel.FaultThreadPanic:
		lines = append(lines, fmt.Sprintf("panic: %v", f.Value))
	}
	if len(f.Stack) > 0 {
		lines = append(lines, "trace:")
		for _, line := range strings.Split(string(f.Stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func showFault(h hal.HAL, f *kernel.Fault) {
	lines := faultLines(f)
	if l := h.Logger(); l != nil {
		for _, line := range lines[1:] {
			l.WriteLineString("fault: " + line)
		}
	}
	drawScreen(h, faultBG, faultFG, lines)
}

func showBootError(h hal.HAL, err error) {
	if l := h.Logger(); l != nil {
		l.WriteLineString("boot: " + err.Error())
	}
	drawScreen(h, faultBG, faultFG, []string{"Ember boot failed:", err.Error()})
}

func drawScreen(h hal.HAL, bg, fg color.RGBA, lines []string) {
	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}

	fb.ClearRGB(bg.R, bg.G, bg.B)
	d := fbdisplay.New(fb)
	font := &proggy.TinySZ8pt7b
	fbdisplay.WriteLines(d, font, fbdisplay.MetricsOf(font), 0, lines, fg)
	_ = fb.Present()
}
