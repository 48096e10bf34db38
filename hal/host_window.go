//go:build !tinygo && cgo

package hal

import (
	"image"
	"image/color"
	"os"

	"ember/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const ledSize = 8

var (
	ledOnColor  = color.RGBA{R: 0x30, G: 0xE0, B: 0x30, A: 0xFF}
	ledOffColor = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
)

// RunWindow starts a desktop window that displays the framebuffer.
// Space pauses and resumes stepping. It blocks until the window closes.
func RunWindow(newApp func(HAL) func() error) error {
	h := newHostHAL(os.Stdout)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("Ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	led     *ebiten.Image
	scratch []byte
	step    func() error
	paused  bool
}

func (g *hostGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
		if g.paused {
			g.h.logger.WriteLineString("window: paused")
		} else {
			g.h.logger.WriteLineString("window: resumed")
		}
	}
	// Wall time keeps flowing while paused; the kernel catches up on resume.
	g.h.stepTime(1)
	if g.paused || g.step == nil {
		return nil
	}
	return g.step()
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
		g.led = ebiten.NewImage(ledSize, ledSize)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)

	if g.h.led.On() {
		g.led.Fill(ledOnColor)
	} else {
		g.led.Fill(ledOffColor)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(fb.width-ledSize-2), 2)
	screen.DrawImage(g.led, op)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
