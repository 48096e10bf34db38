package app

import (
	"image/color"

	"ember/hal"
	"ember/internal/buildinfo"
)

var bootFG = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

func bootScreen(h hal.HAL, msg string) {
	if l := h.Logger(); l != nil {
		l.WriteLineString("boot: " + msg)
	}
	drawScreen(h, color.RGBA{A: 0xFF}, bootFG, []string{"Ember " + buildinfo.Short(), msg})
}
