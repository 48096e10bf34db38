package fbdisplay

import (
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"
)

// Metrics is the character cell of a monospace font.
type Metrics struct {
	Width  int16
	Height int16
	// Offset is the baseline distance from the top of the cell.
	Offset int16
}

// MetricsOf derives the cell of font from the width of "0" and its line
// advance.
func MetricsOf(font tinyfont.Fonter) Metrics {
	_, w := tinyfont.LineWidth(font, "0")
	h := int16(font.GetYAdvance())
	off := h - h/4
	return Metrics{Width: int16(w), Height: h, Offset: off}
}

// WriteLines draws lines from y down, wrapping at the display width, and
// returns the y below the last drawn row. It stops at the bottom edge.
func WriteLines(d *Display, font tinyfont.Fonter, m Metrics, y int16, lines []string, fg color.RGBA) int16 {
	if m.Width <= 0 || m.Height <= 0 {
		return y
	}
	w, h := d.Size()
	cols := w / m.Width
	if cols <= 0 {
		cols = 1
	}

	for _, line := range lines {
		for {
			if y+m.Height > h {
				return y
			}
			chunk, rest := takeRunes(line, cols)
			x := int16(0)
			for _, r := range chunk {
				tinyfont.DrawChar(d, font, x, y+m.Offset, r, fg)
				x += m.Width
			}
			y += m.Height
			line = strings.TrimLeft(rest, " ")
			if line == "" {
				break
			}
		}
	}
	return y
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
