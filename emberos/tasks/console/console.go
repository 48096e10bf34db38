// Package console renders scheduler statistics to the framebuffer through
// a VT100 terminal.
package console

import (
	"fmt"

	"ember/emberos/fbdisplay"
	"ember/emberos/kernel"
	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	StackWords = kernel.MaxStackWords / 2
	RefreshMs  = 250
)

var _ tinyterm.Displayer = (*fbdisplay.Display)(nil)

// Source supplies extra status lines, such as task counters.
type Source func() []string

type Task struct {
	disp    hal.Display
	sources []Source

	fb   hal.Framebuffer
	d    *fbdisplay.Display
	t    *tinyterm.Terminal
	font *tinyfont.Font

	frames uint32
}

func New(disp hal.Display, sources ...Source) *Task {
	return &Task{disp: disp, sources: sources, font: &proggy.TinySZ8pt7b}
}

func (t *Task) Spec() kernel.ThreadSpec {
	return kernel.ThreadSpec{
		Name:       "console",
		Entry:      t.Run,
		StackWords: StackWords,
		Priority:   kernel.Low,
	}
}

// Frames returns the number of refreshes drawn.
func (t *Task) Frames() uint32 { return t.frames }

func (t *Task) Run(ctx *kernel.Context) {
	if t.disp != nil {
		t.fb = t.disp.Framebuffer()
	}
	t.d = fbdisplay.New(t.fb)

	for {
		t.reset()
		t.render(ctx)
		t.d.Display()
		t.frames++
		ctx.SleepMs(RefreshMs)
	}
}

func (t *Task) reset() {
	m := fbdisplay.MetricsOf(t.font)
	t.t = tinyterm.NewTerminal(t.d)
	t.t.Configure(&tinyterm.Config{
		Font:       t.font,
		FontHeight: m.Height,
		FontOffset: m.Offset,
	})
	if t.fb != nil {
		t.fb.ClearRGB(0, 0, 0)
	}
}

func (t *Task) render(ctx *kernel.Context) {
	fmt.Fprint(t.t, Format(ctx.Stats(), threads(ctx)))
	for _, src := range t.sources {
		for _, line := range src() {
			fmt.Fprintf(t.t, "%s\n", line)
		}
	}
}

func threads(ctx *kernel.Context) []kernel.ThreadInfo {
	out := make([]kernel.ThreadInfo, 0, ctx.ThreadCount())
	for i := 0; i < ctx.ThreadCount(); i++ {
		if info, ok := ctx.Thread(kernel.ThreadID(i)); ok {
			out = append(out, info)
		}
	}
	return out
}
