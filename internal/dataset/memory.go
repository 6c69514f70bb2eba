package dataset

import "fmt"

// MemorySource serves samples from arrays already in natural layout.
type MemorySource struct {
	shape  Shape
	images []uint8
	labels []uint16
	depths []float32
}

// NewMemorySource wraps dense (samples, height, width[, 3]) arrays. Any of
// the arrays may be nil when the caller never reads that kind of sample.
func NewMemorySource(shape Shape, images []uint8, labels []uint16, depths []float32) (*MemorySource, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	n := shape.Samples * shape.Pixels()
	if images != nil && len(images) != n*Channels {
		return nil, fmt.Errorf("images: %d values for %s: %w", len(images), shape, ErrShape)
	}
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("labels: %d values for %s: %w", len(labels), shape, ErrShape)
	}
	if depths != nil && len(depths) != n {
		return nil, fmt.Errorf("depths: %d values for %s: %w", len(depths), shape, ErrShape)
	}
	return &MemorySource{shape: shape, images: images, labels: labels, depths: depths}, nil
}

func (m *MemorySource) Shape() Shape { return m.shape }

func (m *MemorySource) Image(pos int) ([]uint8, error) {
	if err := m.check(pos, m.images == nil, "images"); err != nil {
		return nil, err
	}
	n := m.shape.Pixels() * Channels
	return append([]uint8(nil), m.images[pos*n:(pos+1)*n]...), nil
}

func (m *MemorySource) Label(pos int) ([]uint16, error) {
	if err := m.check(pos, m.labels == nil, "labels"); err != nil {
		return nil, err
	}
	n := m.shape.Pixels()
	return append([]uint16(nil), m.labels[pos*n:(pos+1)*n]...), nil
}

func (m *MemorySource) Depth(pos int) ([]float32, error) {
	if err := m.check(pos, m.depths == nil, "depths"); err != nil {
		return nil, err
	}
	n := m.shape.Pixels()
	return append([]float32(nil), m.depths[pos*n:(pos+1)*n]...), nil
}

func (m *MemorySource) Close() error { return nil }

func (m *MemorySource) check(pos int, missing bool, what string) error {
	if missing {
		return fmt.Errorf("memory source has no %s: %w", what, ErrShape)
	}
	return m.shape.checkPos(pos)
}
