package compositor

import "image/color"

// Palette is the 256-entry, 3-byte-per-entry indexed color table every
// background and sprite resource is drawn against (spec §4.J).
// DefaultPalette and SetEntry keep index 0 transparent, matching the
// sprite blitter's convention; a Palette filled in directly, such as a
// decoded background's, keeps whatever alpha it is given.
type Palette [256]color.RGBA

// DefaultPalette returns an all-black palette with index 0 marked
// transparent, the state a freshly loaded module starts from before
// its own 0x18 background resource supplies real entries.
func DefaultPalette() Palette {
	var p Palette
	for i := 1; i < 256; i++ {
		p[i] = color.RGBA{A: 0xFF}
	}
	return p
}

// SetEntry stores one palette entry from its 3-byte RGB triplet.
func (p *Palette) SetEntry(index int, r, g, b byte) {
	alpha := byte(0xFF)
	if index == 0 {
		alpha = 0
	}
	p[index] = color.RGBA{R: r, G: g, B: b, A: alpha}
}

// ColorPalette adapts Palette to the stdlib color.Palette interface
// used by image.Paletted and golang.org/x/image/draw.
func (p Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}
