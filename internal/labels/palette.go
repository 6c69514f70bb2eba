package labels

import (
	"image"
	"image/color"
)

// Palette is the bit-interleaved colour map used for colorized label images.
// Entry 0 is black and is used for unlabeled pixels.
type Palette []color.RGBA

// NewPalette generates n colours. Index bits are dealt round-robin to the
// red, green and blue channels, filling each channel from its high bit down.
func NewPalette(n int) Palette {
	p := make(Palette, n)
	for i := range p {
		var r, g, b uint8
		c := i
		for j := 0; j < 8; j++ {
			r |= uint8(c&1) << (7 - j)
			g |= uint8((c>>1)&1) << (7 - j)
			b |= uint8((c>>2)&1) << (7 - j)
			c >>= 3
		}
		p[i] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return p
}

// Color returns the palette colour for a class. None maps to entry 0.
func (p Palette) Color(c ClassID) color.RGBA {
	i := c.ID()
	if i >= len(p) {
		return color.RGBA{A: 0xff}
	}
	return p[i]
}

// Colorize renders a stored label plane as an RGB image.
func (p Palette) Colorize(seg *image.Gray) *image.RGBA {
	b := seg.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetRGBA(x, y, p.Color(FromByte(seg.GrayAt(x, y).Y)))
		}
	}
	return out
}
