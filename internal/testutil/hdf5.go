package testutil

import (
	"testing"

	"github.com/scigolib/hdf5"
)

// NYUv2Arrays holds sample arrays in natural layout: images are
// (samples, height, width, 3), labels and depths (samples, height, width).
// A nil array is left out of the file.
type NYUv2Arrays struct {
	Samples, Height, Width int

	Images []uint8
	Labels []uint16
	Depths []float32
}

// WriteHDF5 stores a in the layout of the labeled v7.3 release: images as
// (N, 3, W, H), labels and depths as (N, W, H), each in its native type.
func WriteHDF5(t *testing.T, path string, a NYUv2Arrays) {
	t.Helper()
	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	AssertNoError(t, err)

	n, h, w := uint64(a.Samples), uint64(a.Height), uint64(a.Width)
	if a.Images != nil {
		ds, err := fw.CreateDataset("/images", hdf5.Uint8, []uint64{n, 3, w, h})
		AssertNoError(t, err)
		AssertNoError(t, ds.Write(storeImages(a)))
	}
	if a.Labels != nil {
		ds, err := fw.CreateDataset("/labels", hdf5.Uint16, []uint64{n, w, h})
		AssertNoError(t, err)
		AssertNoError(t, ds.Write(storePlanes(a.Labels, a.Samples, a.Height, a.Width)))
	}
	if a.Depths != nil {
		ds, err := fw.CreateDataset("/depths", hdf5.Float32, []uint64{n, w, h})
		AssertNoError(t, err)
		AssertNoError(t, ds.Write(storePlanes(a.Depths, a.Samples, a.Height, a.Width)))
	}
	AssertNoError(t, fw.Close())
}

func storeImages(a NYUv2Arrays) []uint8 {
	out := make([]uint8, len(a.Images))
	for s := 0; s < a.Samples; s++ {
		for y := 0; y < a.Height; y++ {
			for x := 0; x < a.Width; x++ {
				for c := 0; c < 3; c++ {
					natural := ((s*a.Height+y)*a.Width+x)*3 + c
					stored := ((s*3+c)*a.Width+x)*a.Height + y
					out[stored] = a.Images[natural]
				}
			}
		}
	}
	return out
}

func storePlanes[T uint16 | float32](in []T, samples, height, width int) []T {
	out := make([]T, len(in))
	for s := 0; s < samples; s++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[(s*width+x)*height+y] = in[(s*height+y)*width+x]
			}
		}
	}
	return out
}
