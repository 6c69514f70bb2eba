package labels

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPalette(t *testing.T) {
	p := NewPalette(256)
	assert.Len(t, p, 256)

	tests := []struct {
		index int
		want  color.RGBA
	}{
		{0, color.RGBA{0, 0, 0, 255}},
		{1, color.RGBA{128, 0, 0, 255}},
		{2, color.RGBA{0, 128, 0, 255}},
		{3, color.RGBA{128, 128, 0, 255}},
		{4, color.RGBA{0, 0, 128, 255}},
		{7, color.RGBA{128, 128, 128, 255}},
		{8, color.RGBA{64, 0, 0, 255}},
		{255, color.RGBA{224, 224, 192, 255}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p[tt.index], "palette[%d]", tt.index)
	}
}

func TestPaletteColorize(t *testing.T) {
	p := NewPalette(256)
	seg := image.NewGray(image.Rect(0, 0, 3, 1))
	seg.Pix = []uint8{Unlabeled, 0, 2}

	out := p.Colorize(seg)
	assert.Equal(t, p[0], out.RGBAAt(0, 0), "unlabeled is black")
	assert.Equal(t, p[1], out.RGBAAt(1, 0), "class byte 0 is palette entry 1")
	assert.Equal(t, p[3], out.RGBAAt(2, 0))
}

func TestTaxonomyNamesFromByte(t *testing.T) {
	assert.Len(t, Classes40.Names(), 40)
	assert.Len(t, Classes13.Names(), 13)
	assert.Equal(t, "wall", Classes40.Name(FromByte(0)))
	assert.Equal(t, "window", Classes13.Name(FromByte(12)))
	assert.Equal(t, "unlabeled", Classes13.Name(None))
	assert.Equal(t, "class-50", Classes40.Name(Some(50)))
	assert.Equal(t, "class40", Classes40.String())
}
