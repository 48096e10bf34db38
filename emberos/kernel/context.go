package kernel

// Context provides thread-local access to kernel operations.
type Context struct {
	s  *Scheduler
	id ThreadID
}

// ThreadID returns the current thread ID.
func (c *Context) ThreadID() ThreadID { return c.id }

// Name returns the registered thread name.
func (c *Context) Name() string { return c.s.threads[c.id].name }

// Yield gives up the rest of this dispatch. It returns when the scheduler
// next dispatches the thread.
func (c *Context) Yield() {
	c.s.port.Yield()
}

// Poll is a preemption point. On hardware ports preemption is asynchronous
// and Poll does nothing.
func (c *Context) Poll() {
	if p, ok := c.s.port.(Poller); ok {
		p.Poll()
	}
}

// NowMs returns the injected time source.
func (c *Context) NowMs() uint32 {
	return c.s.clock()
}

// WaitUntil yields until pred holds.
func (c *Context) WaitUntil(pred func() bool) {
	for !pred() {
		c.Yield()
	}
}

// SleepMs yields until at least ms milliseconds have elapsed.
func (c *Context) SleepMs(ms uint32) {
	start := c.NowMs()
	c.WaitUntil(func() bool {
		return c.NowMs()-start >= ms
	})
}

// Critical runs fn with the tick interrupt masked, when the port can mask it.
func (c *Context) Critical(fn func()) {
	m, ok := c.s.port.(TickMasker)
	if !ok {
		fn()
		return
	}
	m.MaskTick()
	defer m.UnmaskTick()
	fn()
}

// Info returns a snapshot of the calling thread.
func (c *Context) Info() ThreadInfo {
	return c.s.threads[c.id].info(c.id)
}

// ThreadCount returns the number of registered threads.
func (c *Context) ThreadCount() int { return c.s.count }

// Thread returns a snapshot of another thread.
func (c *Context) Thread(id ThreadID) (ThreadInfo, bool) {
	return c.s.Info(id)
}

// Stats returns scheduler-wide counters.
func (c *Context) Stats() Stats { return c.s.Stats() }
