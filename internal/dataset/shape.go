// Package dataset loads the raw NYUv2 arrays, split lists and class mapping
// tables, and presents samples in natural row-major layout.
package dataset

import (
	"errors"
	"fmt"
)

// ErrShape is returned when array data does not match the declared shape.
var ErrShape = errors.New("dataset shape mismatch")

// Channels is the number of colour channels in an RGB sample.
const Channels = 3

// Shape describes the sample collection.
type Shape struct {
	Samples int `json:"samples"`
	Height  int `json:"height"`
	Width   int `json:"width"`
}

// NYUv2 is the shape of the labeled NYU Depth v2 release.
var NYUv2 = Shape{Samples: 1449, Height: 480, Width: 640}

// Pixels returns the number of pixels in one sample.
func (s Shape) Pixels() int { return s.Height * s.Width }

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	if s.Samples <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%dx%dx%d: dimensions must be positive: %w", s.Samples, s.Height, s.Width, ErrShape)
	}
	return nil
}

func (s Shape) checkPos(pos int) error {
	if pos < 0 || pos >= s.Samples {
		return fmt.Errorf("sample position %d outside 0..%d: %w", pos, s.Samples-1, ErrShape)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%d samples of %dx%d", s.Samples, s.Width, s.Height)
}
