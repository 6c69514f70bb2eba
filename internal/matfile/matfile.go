// Package matfile reads and writes MATLAB level 5 MAT-files.
//
// Only the subset used by the NYUv2 companion files is supported: numeric,
// logical and char arrays, structs and cells, optionally zlib-compressed.
// Version 7.3 files are HDF5 containers and are read by package dataset.
package matfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrFormat is returned for files that are not valid level 5 MAT-files
	// or use features this package does not decode.
	ErrFormat = errors.New("unsupported or malformed MAT-file")
	// ErrNotFound is returned when a named variable or field is missing.
	ErrNotFound = errors.New("MAT-file variable not found")
)

const headerLen = 128

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
)

// Class is the MATLAB array class stored in the array flags.
type Class uint8

// Array classes.
const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassObject Class = 3
	ClassChar   Class = 4
	ClassSparse Class = 5
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

const (
	flagComplex = 0x0800
	flagLogical = 0x0200
)

// Var is one decoded MATLAB array. Numeric and char data is held as float64
// in MATLAB's column-major order regardless of the storage type on disk.
type Var struct {
	Name    string
	Class   Class
	Logical bool
	Dims    []int
	Data    []float64
	Fields  []string
	Structs []map[string]*Var
	Cells   []*Var
}

// Len returns the number of elements in the array.
func (v *Var) Len() int {
	if len(v.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range v.Dims {
		n *= d
	}
	return n
}

// Field returns a field of the first struct element.
func (v *Var) Field(name string) (*Var, error) {
	if v.Class != ClassStruct || len(v.Structs) == 0 {
		return nil, fmt.Errorf("%s is not a non-empty struct: %w", v.display(), ErrFormat)
	}
	f, ok := v.Structs[0][name]
	if !ok {
		return nil, fmt.Errorf("field %s.%s: %w", v.display(), name, ErrNotFound)
	}
	return f, nil
}

// FieldAt returns the i-th field (file order) of the first struct element.
func (v *Var) FieldAt(i int) (*Var, error) {
	if i < 0 || i >= len(v.Fields) {
		return nil, fmt.Errorf("field %d of %s with %d fields: %w", i, v.display(), len(v.Fields), ErrNotFound)
	}
	return v.Field(v.Fields[i])
}

// Uint16s returns the data as unsigned 16-bit integers, failing on any
// non-integral or out-of-range value.
func (v *Var) Uint16s() ([]uint16, error) {
	if v.Data == nil && v.Len() > 0 {
		return nil, fmt.Errorf("%s has class %d, not numeric: %w", v.display(), v.Class, ErrFormat)
	}
	out := make([]uint16, len(v.Data))
	for i, f := range v.Data {
		if f < 0 || f > 65535 || f != float64(int64(f)) {
			return nil, fmt.Errorf("%s[%d] = %g is not a uint16: %w", v.display(), i, f, ErrFormat)
		}
		out[i] = uint16(f)
	}
	return out, nil
}

// Ints returns the data as integers, failing on non-integral values.
func (v *Var) Ints() ([]int, error) {
	if v.Data == nil && v.Len() > 0 {
		return nil, fmt.Errorf("%s has class %d, not numeric: %w", v.display(), v.Class, ErrFormat)
	}
	out := make([]int, len(v.Data))
	for i, f := range v.Data {
		if f != float64(int64(f)) {
			return nil, fmt.Errorf("%s[%d] = %g is not an integer: %w", v.display(), i, f, ErrFormat)
		}
		out[i] = int(f)
	}
	return out, nil
}

func (v *Var) display() string {
	if v.Name == "" {
		return "<unnamed>"
	}
	return v.Name
}

// File is a decoded MAT-file.
type File struct {
	Header string
	Order  binary.ByteOrder
	Vars   []*Var
}

// Var returns the top-level variable with the given name.
func (f *File) Var(name string) (*Var, error) {
	for _, v := range f.Vars {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// Open reads and decodes the MAT-file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode reads a whole MAT-file from r.
func Decode(r io.Reader) (*File, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) < headerLen {
		return nil, fmt.Errorf("file is %d bytes, shorter than the header: %w", len(buf), ErrFormat)
	}

	header := strings.TrimRight(string(buf[:116]), " \x00")
	if strings.Contains(header, "MATLAB 7.3") {
		return nil, fmt.Errorf("version 7.3 (HDF5) MAT-file: %w", ErrFormat)
	}

	var order binary.ByteOrder
	switch string(buf[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad endian indicator %q: %w", buf[126:128], ErrFormat)
	}

	f := &File{Header: header, Order: order}
	d := decoder{order: order}
	rest := buf[headerLen:]
	for len(rest) > 0 {
		typ, data, next, err := d.element(rest)
		if err != nil {
			return nil, err
		}
		rest = next

		if typ == miCOMPRESSED {
			inflated, err := inflate(data)
			if err != nil {
				return nil, err
			}
			typ, data, _, err = d.element(inflated)
			if err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			// Top-level elements other than arrays carry nothing we read.
			continue
		}
		v, err := d.matrix(data)
		if err != nil {
			return nil, err
		}
		f.Vars = append(f.Vars, v)
	}
	return f, nil
}
