package dataset

// Source yields one sample at a time in natural layout: images as
// height x width x RGB, labels and depths as height x width, row-major.
// Positions are zero-based (sample index minus one).
type Source interface {
	Shape() Shape
	Image(pos int) ([]uint8, error)
	Label(pos int) ([]uint16, error)
	Depth(pos int) ([]float32, error)
	Close() error
}
