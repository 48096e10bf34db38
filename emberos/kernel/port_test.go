package kernel

const fakeFrameMagic Word = 0xF4A3E000

// fakePort records protocol calls. EnterThread runs enter, if set, in place
// of a real thread.
type fakePort struct {
	inits    int
	start    func(slot int)
	entered  []uintptr
	enter    func(sp uintptr) uintptr
	yields   int
	preempts int
	idles    int
	masked   int
	unmasked int
}

func (p *fakePort) Init(start func(slot int)) {
	p.inits++
	p.start = start
}

func (p *fakePort) EnterThread(sp uintptr) uintptr {
	p.entered = append(p.entered, sp)
	if p.enter != nil {
		return p.enter(sp)
	}
	return sp
}

func (p *fakePort) Yield()       { p.yields++ }
func (p *fakePort) TickPreempt() { p.preempts++ }
func (p *fakePort) Idle()        { p.idles++ }
func (p *fakePort) MaskTick()    { p.masked++ }
func (p *fakePort) UnmaskTick()  { p.unmasked++ }
func (p *fakePort) FrameWords() int {
	return 4
}

func (p *fakePort) BuildFrame(stack Stack, slot int) uintptr {
	i := len(stack.Words) - p.FrameWords()
	stack.Words[i] = fakeFrameMagic
	stack.Words[i+1] = Word(slot)
	return stack.Addr(i)
}

func idleEntry(ctx *Context) {
	for {
		ctx.Yield()
	}
}
