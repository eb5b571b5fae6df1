package compositor

import (
	"image"
	"image/color"
)

// flipped presents img mirrored horizontally and/or vertically without
// copying pixels, so the blitter can draw any of the four orientation
// combinations through the same code path (spec §4.J "4-way flip").
type flipped struct {
	img          image.Image
	hflip, vflip bool
}

func (f flipped) ColorModel() color.Model { return f.img.ColorModel() }

func (f flipped) Bounds() image.Rectangle { return f.img.Bounds() }

func (f flipped) At(x, y int) color.Color {
	b := f.img.Bounds()
	if f.hflip {
		x = b.Min.X + (b.Max.X - 1 - x)
	}
	if f.vflip {
		y = b.Min.Y + (b.Max.Y - 1 - y)
	}
	return f.img.At(x, y)
}
