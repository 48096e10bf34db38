//go:build tinygo && baremetal && picocalc

package hal

import (
	"machine"
)

type picoCalcHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
}

// New returns a PicoCalc HAL implementation (Pico/Pico2 on the PicoCalc carrier).
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. If the LCD does not come
// up the framebuffer still works; Present reports ErrNotImplemented.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	logger := &uartLogger{uart: uart}
	lcd, err := initILI9488()
	if err != nil {
		logger.WriteLineString("hal: lcd: " + err.Error())
	}

	return &picoCalcHAL{
		logger: logger,
		led:    &pinLED{pin: ledPin},
		fb:     newPicoCalcFramebuffer(lcd),
	}
}

func (h *picoCalcHAL) Logger() Logger   { return h.logger }
func (h *picoCalcHAL) LED() LED         { return h.led }
func (h *picoCalcHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *picoCalcHAL) Time() Time       { return kernelTime{} }

const (
	picoCalcWidth  = 320
	picoCalcHeight = 320
)

type picoCalcFramebuffer struct {
	w      int
	h      int
	stride int
	buf    []byte

	lcd *ili9488
}

func newPicoCalcFramebuffer(lcd *ili9488) *picoCalcFramebuffer {
	return &picoCalcFramebuffer{
		w:      picoCalcWidth,
		h:      picoCalcHeight,
		stride: picoCalcWidth * 2,
		buf:    make([]byte, picoCalcWidth*picoCalcHeight*2),
		lcd:    lcd,
	}
}

func (f *picoCalcFramebuffer) Width() int          { return f.w }
func (f *picoCalcFramebuffer) Height() int         { return f.h }
func (f *picoCalcFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *picoCalcFramebuffer) StrideBytes() int    { return f.stride }
func (f *picoCalcFramebuffer) Buffer() []byte      { return f.buf }

func (f *picoCalcFramebuffer) ClearRGB(r, g, b uint8) {
	fillRGB565(f.buf, rgb565(r, g, b))
}

func (f *picoCalcFramebuffer) Present() error {
	if f.lcd == nil {
		return ErrNotImplemented
	}
	return f.lcd.blitRows(f.buf, f.w, 0, f.h)
}
