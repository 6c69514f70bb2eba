package matfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, compress bool, vars ...*Var) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Compress = compress
	for _, v := range vars {
		require.NoError(t, enc.Encode(v))
	}
	return buf.Bytes()
}

func TestDecodeSplitsLayout(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data := encode(t, compress,
			NewDouble("trainNdxs", []int{3, 1}, []float64{1, 3, 5}),
			NewDouble("testNdxs", []int{2, 1}, []float64{2, 4}),
		)

		f, err := Decode(bytes.NewReader(data))
		require.NoError(t, err, "compress=%v", compress)
		require.Len(t, f.Vars, 2)

		train, err := f.Var("trainNdxs")
		require.NoError(t, err)
		idx, err := train.Ints()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 5}, idx)
		assert.Equal(t, []int{3, 1}, train.Dims)
		assert.Equal(t, ClassDouble, train.Class)

		_, err = f.Var("valNdxs")
		assert.True(t, errors.Is(err, ErrNotFound))
	}
}

func TestDecodeStructFirstField(t *testing.T) {
	mapping := NewDouble("", []int{1, 4}, []float64{12, 5, 0, 3})
	other := NewDouble("", []int{0, 0}, nil)
	data := encode(t, true, NewStruct("classMapping13", []int{1, 1},
		[]string{"classMapping13", "labelNames"},
		map[string]*Var{"classMapping13": mapping, "labelNames": other},
	))

	f, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	v, err := f.Var("classMapping13")
	require.NoError(t, err)
	assert.Equal(t, []string{"classMapping13", "labelNames"}, v.Fields)

	first, err := v.FieldAt(0)
	require.NoError(t, err)
	vals, err := first.Uint16s()
	require.NoError(t, err)
	if diff := cmp.Diff([]uint16{12, 5, 0, 3}, vals); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}

	empty, err := v.Field("labelNames")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = v.FieldAt(5)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = v.Field("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUint16sRejectsNonIntegral(t *testing.T) {
	for _, bad := range []float64{-1, 0.5, 70000} {
		v := NewDouble("mapClass", []int{1, 1}, []float64{bad})
		_, err := v.Uint16s()
		assert.True(t, errors.Is(err, ErrFormat), "value %g", bad)
	}
}

func TestDecodeRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte("MATLAB")},
		{"hdf5 container", append([]byte("MATLAB 7.3 MAT-file, Platform: GLNXA64"), make([]byte, 200)...)},
		{"bad endian", make([]byte, headerLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))
		})
	}
}

func TestDecodeTruncatedElement(t *testing.T) {
	data := encode(t, false, NewDouble("mapClass", []int{1, 3}, []float64{1, 2, 3}))
	_, err := Decode(bytes.NewReader(data[:len(data)-16]))
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classMapping40.mat")
	require.NoError(t, os.WriteFile(path, encode(t, false, NewDouble("mapClass", []int{1, 2}, []float64{40, 1})), 0644))

	f, err := Open(path)
	require.NoError(t, err)
	v, err := f.Var("mapClass")
	require.NoError(t, err)
	vals, err := v.Uint16s()
	require.NoError(t, err)
	assert.Equal(t, []uint16{40, 1}, vals)

	_, err = Open(filepath.Join(t.TempDir(), "missing.mat"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
