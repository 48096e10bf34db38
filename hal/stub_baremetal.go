//go:build tinygo && baremetal

package hal

// ramFramebuffer is a framebuffer with no panel behind it.
type ramFramebuffer struct {
	w   int
	h   int
	buf []byte
}

func newRAMFramebuffer(w, h int) *ramFramebuffer {
	return &ramFramebuffer{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *ramFramebuffer) Width() int          { return f.w }
func (f *ramFramebuffer) Height() int         { return f.h }
func (f *ramFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *ramFramebuffer) StrideBytes() int    { return f.w * 2 }
func (f *ramFramebuffer) Buffer() []byte      { return f.buf }
func (f *ramFramebuffer) Present() error      { return nil }

func (f *ramFramebuffer) ClearRGB(r, g, b uint8) {
	fillRGB565(f.buf, rgb565(r, g, b))
}
