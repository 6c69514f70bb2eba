package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nyuv2/internal/testutil"
)

var fixtureShape = Shape{Samples: 2, Height: 2, Width: 3}

// fixtureArrays fills every array in natural layout with values that encode
// their own coordinates, so a wrong axis order shows up as a wrong value.
func fixtureArrays() testutil.NYUv2Arrays {
	s := fixtureShape
	a := testutil.NYUv2Arrays{Samples: s.Samples, Height: s.Height, Width: s.Width}
	for n := 0; n < s.Samples; n++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				for c := 0; c < Channels; c++ {
					a.Images = append(a.Images, uint8(50*n+20*c+5*y+x))
				}
				a.Labels = append(a.Labels, uint16(1000*n+10*y+x))
				a.Depths = append(a.Depths, float32(n)+0.25*float32(y)+0.5*float32(x))
			}
		}
	}
	return a
}

func openFixture(t *testing.T, a testutil.NYUv2Arrays) *HDF5Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nyu_depth_v2_labeled.mat")
	testutil.WriteHDF5(t, path, a)
	src, err := OpenHDF5(path, fixtureShape)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestHDF5SourceReadsNativeTypes(t *testing.T) {
	a := fixtureArrays()
	src := openFixture(t, a)
	assert.Equal(t, fixtureShape, src.Shape())

	plane := fixtureShape.Pixels()
	for pos := 0; pos < fixtureShape.Samples; pos++ {
		img, err := src.Image(pos)
		require.NoError(t, err, "image %d", pos)
		assert.Equal(t, a.Images[pos*plane*Channels:(pos+1)*plane*Channels], img, "image %d", pos)

		lbl, err := src.Label(pos)
		require.NoError(t, err, "label %d", pos)
		assert.Equal(t, a.Labels[pos*plane:(pos+1)*plane], lbl, "label %d", pos)

		dep, err := src.Depth(pos)
		require.NoError(t, err, "depth %d", pos)
		assert.Equal(t, a.Depths[pos*plane:(pos+1)*plane], dep, "depth %d", pos)
	}
}

func TestHDF5SourceLayout(t *testing.T) {
	src := openFixture(t, fixtureArrays())

	// Second sample, row 1, column 2: channel c holds 50+20c+5+2.
	img, err := src.Image(1)
	require.NoError(t, err)
	px := (1*fixtureShape.Width + 2) * Channels
	assert.Equal(t, []uint8{57, 77, 97}, img[px:px+Channels])

	lbl, err := src.Label(1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1000, 1001, 1002, 1010, 1011, 1012}, lbl)
}

func TestHDF5SourcePositionOutOfRange(t *testing.T) {
	src := openFixture(t, fixtureArrays())
	for _, pos := range []int{-1, fixtureShape.Samples} {
		_, err := src.Image(pos)
		assert.True(t, errors.Is(err, ErrShape), "image %d: %v", pos, err)
		_, err = src.Label(pos)
		assert.True(t, errors.Is(err, ErrShape), "label %d: %v", pos, err)
		_, err = src.Depth(pos)
		assert.True(t, errors.Is(err, ErrShape), "depth %d: %v", pos, err)
	}
}

func TestOpenHDF5MissingDataset(t *testing.T) {
	a := fixtureArrays()
	a.Depths = nil
	path := filepath.Join(t.TempDir(), "partial.mat")
	testutil.WriteHDF5(t, path, a)

	_, err := OpenHDF5(path, fixtureShape)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
	assert.Contains(t, err.Error(), `"depths"`)
}

func TestOpenHDF5Errors(t *testing.T) {
	_, err := OpenHDF5(filepath.Join(t.TempDir(), "absent.mat"), fixtureShape)
	assert.Error(t, err)

	_, err = OpenHDF5("unused.mat", Shape{})
	assert.True(t, errors.Is(err, ErrShape))
}
