// Package testutil provides shared test utilities and fixtures.
//
// Helpers here build the small MAT-files and PNG checks that several
// packages' tests need, so fixture layout stays in one place.
package testutil

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/banshee-data/nyuv2/internal/matfile"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteMAT encodes vars into a level 5 MAT-file at path.
func WriteMAT(t *testing.T, path string, compress bool, vars ...*matfile.Var) {
	t.Helper()
	var buf bytes.Buffer
	enc := matfile.NewEncoder(&buf)
	enc.Compress = compress
	for _, v := range vars {
		AssertNoError(t, enc.Encode(v))
	}
	AssertNoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	AssertNoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// Column returns an n x 1 double array, the layout of MATLAB index lists.
func Column(name string, values ...int) *matfile.Var {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return matfile.NewDouble(name, []int{len(values), 1}, data)
}

// Row returns a 1 x n double array, the layout of the mapping tables.
func Row(name string, values ...int) *matfile.Var {
	v := Column(name, values...)
	v.Dims = []int{1, len(values)}
	return v
}

// WriteMappings writes classMapping40.mat and class13Mapping.mat into dir
// and returns their paths. The 13-class table is wrapped in a struct the way
// the published file stores it.
func WriteMappings(t *testing.T, dir string, map40, map13 []int) (path40, path13 string) {
	t.Helper()
	path40 = filepath.Join(dir, "classMapping40.mat")
	path13 = filepath.Join(dir, "class13Mapping.mat")
	WriteMAT(t, path40, false, Row("mapClass", map40...))
	WriteMAT(t, path13, true, matfile.NewStruct("classMapping13", []int{1, 1},
		[]string{"classMapping13"},
		map[string]*matfile.Var{"classMapping13": Row("", map13...)},
	))
	return path40, path13
}

// WriteSplits writes a splits.mat with trainNdxs and testNdxs.
func WriteSplits(t *testing.T, path string, train, test []int) {
	t.Helper()
	WriteMAT(t, path, false, Column("trainNdxs", train...), Column("testNdxs", test...))
}

// DecodePNG reads and decodes a PNG file.
func DecodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	AssertNoError(t, err)
	return img
}

// ListFiles returns the sorted names of regular files directly in dir, or
// nil when dir does not exist.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	AssertNoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
