package dataset

import (
	"fmt"
	"strings"

	"github.com/scigolib/hdf5"
)

// Dataset names inside the labeled NYUv2 v7.3 MAT-file.
const (
	ImagesDataset = "images"
	LabelsDataset = "labels"
	DepthsDataset = "depths"
)

// HDF5Source reads samples lazily from the v7.3 MAT-file, one hyperslab per
// sample, so the multi-gigabyte arrays never sit in memory at once.
type HDF5Source struct {
	file   *hdf5.File
	shape  Shape
	images *hdf5.Dataset
	labels *hdf5.Dataset
	depths *hdf5.Dataset
}

// OpenHDF5 opens the dataset file and locates the three sample arrays.
// The stored layout is (N, 3, W, H) for images and (N, W, H) for labels and
// depths; shape supplies N, H and W.
func OpenHDF5(path string, shape Shape) (*HDF5Source, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	found := make(map[string]*hdf5.Dataset, 3)
	f.Walk(func(p string, obj hdf5.Object) {
		ds, ok := obj.(*hdf5.Dataset)
		if !ok {
			return
		}
		name := strings.TrimPrefix(p, "/")
		switch name {
		case ImagesDataset, LabelsDataset, DepthsDataset:
			found[name] = ds
		}
	})
	for _, name := range []string{ImagesDataset, LabelsDataset, DepthsDataset} {
		if found[name] == nil {
			f.Close()
			return nil, fmt.Errorf("%s: dataset %q not found: %w", path, name, ErrShape)
		}
	}

	return &HDF5Source{
		file:   f,
		shape:  shape,
		images: found[ImagesDataset],
		labels: found[LabelsDataset],
		depths: found[DepthsDataset],
	}, nil
}

func (s *HDF5Source) Shape() Shape { return s.shape }

func (s *HDF5Source) Image(pos int) ([]uint8, error) {
	if err := s.shape.checkPos(pos); err != nil {
		return nil, err
	}
	raw, err := s.images.ReadSlice(
		[]uint64{uint64(pos), 0, 0, 0},
		[]uint64{1, Channels, uint64(s.shape.Width), uint64(s.shape.Height)},
	)
	if err != nil {
		return nil, fmt.Errorf("read %s[%d]: %w", ImagesDataset, pos, err)
	}
	stored, err := convert[uint8](raw)
	if err != nil {
		return nil, fmt.Errorf("read %s[%d]: %w", ImagesDataset, pos, err)
	}
	return PermuteImage(stored, s.shape.Width, s.shape.Height)
}

func (s *HDF5Source) Label(pos int) ([]uint16, error) {
	stored, err := readPlane[uint16](s.labels, LabelsDataset, pos, s.shape)
	if err != nil {
		return nil, err
	}
	return PermutePlane(stored, s.shape.Width, s.shape.Height)
}

func (s *HDF5Source) Depth(pos int) ([]float32, error) {
	stored, err := readPlane[float32](s.depths, DepthsDataset, pos, s.shape)
	if err != nil {
		return nil, err
	}
	return PermutePlane(stored, s.shape.Width, s.shape.Height)
}

func (s *HDF5Source) Close() error {
	return s.file.Close()
}

func readPlane[T uint8 | uint16 | float32](ds *hdf5.Dataset, name string, pos int, shape Shape) ([]T, error) {
	if err := shape.checkPos(pos); err != nil {
		return nil, err
	}
	raw, err := ds.ReadSlice(
		[]uint64{uint64(pos), 0, 0},
		[]uint64{1, uint64(shape.Width), uint64(shape.Height)},
	)
	if err != nil {
		return nil, fmt.Errorf("read %s[%d]: %w", name, pos, err)
	}
	out, err := convert[T](raw)
	if err != nil {
		return nil, fmt.Errorf("read %s[%d]: %w", name, pos, err)
	}
	return out, nil
}

// convert narrows whatever slice type the HDF5 reader produced into T. The
// reader may hand back integer datasets widened to []float64; those values
// are exact, so the cast is lossless.
func convert[T uint8 | uint16 | float32](raw interface{}) ([]T, error) {
	switch s := raw.(type) {
	case []T:
		return s, nil
	case []uint8:
		return castSlice[T](s), nil
	case []int8:
		return castSlice[T](s), nil
	case []uint16:
		return castSlice[T](s), nil
	case []int16:
		return castSlice[T](s), nil
	case []uint32:
		return castSlice[T](s), nil
	case []int32:
		return castSlice[T](s), nil
	case []uint64:
		return castSlice[T](s), nil
	case []int64:
		return castSlice[T](s), nil
	case []float32:
		return castSlice[T](s), nil
	case []float64:
		return castSlice[T](s), nil
	}
	return nil, fmt.Errorf("unsupported element slice %T: %w", raw, ErrShape)
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

func castSlice[T uint8 | uint16 | float32, S number](s []S) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = T(v)
	}
	return out
}
