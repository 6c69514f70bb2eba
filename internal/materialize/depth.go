package materialize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/palette/moreland"

	"github.com/banshee-data/nyuv2/internal/dataset"
)

// ErrDepthRange is returned for depths that do not fit the millimetre
// encoding: negative, NaN, or above 65.535 m.
var ErrDepthRange = errors.New("depth outside encodable range")

// DepthScale converts metres to stored units.
const DepthScale = 1000

// QuantizeDepth encodes a row-major depth plane in metres as 16-bit
// millimetres, rounding to the nearest unit.
func QuantizeDepth(depth []float32, width, height int) (*image.Gray16, error) {
	if len(depth) != width*height {
		return nil, fmt.Errorf("%d depth values for %dx%d: %w", len(depth), width, height, dataset.ErrShape)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, d := range depth {
		v := float64(d) * DepthScale
		if math.IsNaN(v) || v < 0 {
			return nil, fmt.Errorf("pixel (%d,%d) = %g m: %w", i%width, i/width, d, ErrDepthRange)
		}
		v = math.Round(v)
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("pixel (%d,%d) = %g m: %w", i%width, i/width, d, ErrDepthRange)
		}
		q := uint16(v)
		img.Pix[2*i] = uint8(q >> 8)
		img.Pix[2*i+1] = uint8(q)
	}
	return img, nil
}

// DecodeDepth converts a stored depth image back to metres.
func DecodeDepth(img *image.Gray16) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, float64(img.Gray16At(x, y).Y)/DepthScale)
		}
	}
	return out
}

// ColorizeDepth renders a depth image through a perceptual colour map
// normalised to the image's own depth range.
func ColorizeDepth(img *image.Gray16) (*image.RGBA, error) {
	b := img.Bounds()
	out := image.NewRGBA(b)
	metres := DecodeDepth(img)
	if len(metres) == 0 {
		return out, nil
	}

	lo, hi := floats.Min(metres), floats.Max(metres)
	if hi <= lo {
		hi = lo + 1
	}
	cmap := moreland.ExtendedBlackBody()
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	for i, m := range metres {
		c, err := cmap.At(m)
		if err != nil {
			return nil, fmt.Errorf("colour map at %g: %w", m, err)
		}
		out.SetRGBA(b.Min.X+i%b.Dx(), b.Min.Y+i/b.Dx(), color.RGBAModel.Convert(c).(color.RGBA))
	}
	return out, nil
}
