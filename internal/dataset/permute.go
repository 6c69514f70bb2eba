package dataset

import (
	"fmt"

	"gorgonia.org/tensor"
)

// The v7.3 file stores MATLAB's column-major arrays, so reading a sample in
// row-major order yields (channel, x, y) for images and (x, y) for planes.

// PermuteImage converts one stored image of (3, width, height) into a new
// (height, width, 3) slice. stored is not modified.
func PermuteImage(stored []uint8, width, height int) ([]uint8, error) {
	return permute(stored, []int{Channels, width, height}, 2, 1, 0)
}

// PermutePlane converts one stored (width, height) plane into a new
// (height, width) slice. stored is not modified.
func PermutePlane[T uint8 | uint16 | float32](stored []T, width, height int) ([]T, error) {
	return permute(stored, []int{width, height}, 1, 0)
}

func permute[T uint8 | uint16 | float32](data []T, shape []int, axes ...int) ([]T, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("%d values for stored shape %v: %w", len(data), shape, ErrShape)
	}

	// Transpose rearranges its backing in place; keep the caller's slice intact.
	backing := append([]T(nil), data...)
	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	if err := t.T(axes...); err != nil {
		return nil, fmt.Errorf("permute %v by %v: %w", shape, axes, err)
	}
	if err := t.Transpose(); err != nil {
		return nil, fmt.Errorf("permute %v by %v: %w", shape, axes, err)
	}
	out, ok := t.Data().([]T)
	if !ok {
		return nil, fmt.Errorf("permuted backing is %T: %w", t.Data(), ErrShape)
	}
	return out, nil
}
