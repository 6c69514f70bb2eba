package materialize

import (
	"fmt"
	"image"

	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/labels"
)

// Frames produces the image written for a zero-based sample position.
// Implementations must be safe for concurrent use.
type Frames interface {
	Frame(pos int) (image.Image, error)
}

// Colorizer is implemented by Frames that can render a visualisation of
// one of their frames.
type Colorizer interface {
	Colorize(frame image.Image) (image.Image, error)
}

// ImageFrames serves RGB samples.
type ImageFrames struct {
	Source dataset.Source
}

func (f ImageFrames) Frame(pos int) (image.Image, error) {
	shape := f.Source.Shape()
	pix, err := f.Source.Image(pos)
	if err != nil {
		return nil, err
	}
	if len(pix) != shape.Pixels()*dataset.Channels {
		return nil, fmt.Errorf("image %d: %d values for %dx%d: %w", pos, len(pix), shape.Width, shape.Height, dataset.ErrShape)
	}
	img := image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	for i := 0; i < shape.Pixels(); i++ {
		copy(img.Pix[i*4:i*4+3], pix[i*3:i*3+3])
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}

// LabelFrames serves remapped label maps of one taxonomy as 8-bit gray
// images holding ClassID bytes.
type LabelFrames struct {
	Source   dataset.Source
	Remap    *labels.Compiled
	Taxonomy labels.Taxonomy
	Palette  labels.Palette
}

// NewLabelFrames prepares label frames with the default palette.
func NewLabelFrames(src dataset.Source, remap *labels.Compiled, tax labels.Taxonomy) *LabelFrames {
	return &LabelFrames{Source: src, Remap: remap, Taxonomy: tax, Palette: labels.NewPalette(256)}
}

func (f *LabelFrames) Frame(pos int) (image.Image, error) {
	shape := f.Source.Shape()
	raw, err := f.Source.Label(pos)
	if err != nil {
		return nil, err
	}
	if len(raw) != shape.Pixels() {
		return nil, fmt.Errorf("label %d: %d values for %dx%d: %w", pos, len(raw), shape.Width, shape.Height, dataset.ErrShape)
	}
	seg40, seg13, err := f.Remap.RemapPlane(raw)
	if err != nil {
		return nil, fmt.Errorf("label %d: %w", pos, err)
	}
	seg := seg40
	if f.Taxonomy == labels.Classes13 {
		seg = seg13
	}
	return &image.Gray{Pix: seg, Stride: shape.Width, Rect: image.Rect(0, 0, shape.Width, shape.Height)}, nil
}

func (f *LabelFrames) Colorize(frame image.Image) (image.Image, error) {
	gray, ok := frame.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("colorize %T: label frames are *image.Gray", frame)
	}
	return f.Palette.Colorize(gray), nil
}

// DepthFrames serves depth maps quantized to millimetres.
type DepthFrames struct {
	Source dataset.Source
}

func (f DepthFrames) Frame(pos int) (image.Image, error) {
	shape := f.Source.Shape()
	depth, err := f.Source.Depth(pos)
	if err != nil {
		return nil, err
	}
	img, err := QuantizeDepth(depth, shape.Width, shape.Height)
	if err != nil {
		return nil, fmt.Errorf("depth %d: %w", pos, err)
	}
	return img, nil
}

func (f DepthFrames) Colorize(frame image.Image) (image.Image, error) {
	g, ok := frame.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("colorize %T: depth frames are *image.Gray16", frame)
	}
	return ColorizeDepth(g)
}
