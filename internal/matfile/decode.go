package matfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zlib"
)

type decoder struct {
	order binary.ByteOrder
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// element splits the next data element off buf. Compressed elements are not
// padded; all others are aligned to 8 bytes.
func (d decoder) element(buf []byte) (typ uint32, data, rest []byte, err error) {
	if len(buf) < 8 {
		return 0, nil, nil, fmt.Errorf("truncated element tag (%d bytes): %w", len(buf), ErrFormat)
	}
	tag := d.order.Uint32(buf[0:4])
	if small := tag >> 16; small != 0 {
		if small > 4 {
			return 0, nil, nil, fmt.Errorf("small element of %d bytes: %w", small, ErrFormat)
		}
		return tag & 0xffff, buf[4 : 4+small], buf[8:], nil
	}

	n := int(d.order.Uint32(buf[4:8]))
	if n > len(buf)-8 {
		return 0, nil, nil, fmt.Errorf("element type %d wants %d bytes, %d left: %w", tag, n, len(buf)-8, ErrFormat)
	}
	end := 8 + n
	if tag != miCOMPRESSED {
		end = align8(end)
		if end > len(buf) {
			end = len(buf)
		}
	}
	return tag, buf[8 : 8+n], buf[end:], nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compressed element: %v: %w", err, ErrFormat)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("compressed element: %v: %w", err, ErrFormat)
	}
	return out, nil
}

// expect reads the next sub-element and checks its type when want != 0.
func (d decoder) expect(buf []byte, what string, want ...uint32) (uint32, []byte, []byte, error) {
	typ, data, rest, err := d.element(buf)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s: %w", what, err)
	}
	if len(want) > 0 {
		ok := false
		for _, w := range want {
			ok = ok || typ == w
		}
		if !ok {
			return 0, nil, nil, fmt.Errorf("%s has element type %d: %w", what, typ, ErrFormat)
		}
	}
	return typ, data, rest, nil
}

// matrix decodes the body of a miMATRIX element.
func (d decoder) matrix(buf []byte) (*Var, error) {
	if len(buf) == 0 {
		// Empty struct fields are stored as zero-length matrices.
		return &Var{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}

	_, flags, rest, err := d.expect(buf, "array flags", miUINT32)
	if err != nil {
		return nil, err
	}
	if len(flags) < 4 {
		return nil, fmt.Errorf("array flags of %d bytes: %w", len(flags), ErrFormat)
	}
	word := d.order.Uint32(flags[0:4])
	v := &Var{Class: Class(word & 0xff), Logical: word&flagLogical != 0}
	complexData := word&flagComplex != 0

	typ, dims, rest, err := d.expect(rest, "dimensions", miINT32)
	if err != nil {
		return nil, err
	}
	dimVals, err := d.numbers(typ, dims)
	if err != nil {
		return nil, err
	}
	for _, x := range dimVals {
		v.Dims = append(v.Dims, int(x))
	}

	_, name, rest, err := d.expect(rest, "array name", miINT8, miUINT8)
	if err != nil {
		return nil, err
	}
	v.Name = string(name)

	switch v.Class {
	case ClassStruct:
		return v, d.structBody(v, rest)
	case ClassCell:
		for i := 0; i < v.Len(); i++ {
			var cell []byte
			if _, cell, rest, err = d.expect(rest, "cell element", miMATRIX); err != nil {
				return nil, err
			}
			c, err := d.matrix(cell)
			if err != nil {
				return nil, fmt.Errorf("%s{%d}: %w", v.display(), i, err)
			}
			v.Cells = append(v.Cells, c)
		}
		return v, nil
	case ClassSparse, ClassObject:
		return nil, fmt.Errorf("%s has class %d: %w", v.display(), v.Class, ErrFormat)
	}

	typ, re, rest, err := d.expect(rest, "real part")
	if err != nil {
		return nil, err
	}
	if v.Data, err = d.numbers(typ, re); err != nil {
		return nil, fmt.Errorf("%s: %w", v.display(), err)
	}
	if complexData {
		// The imaginary part is read past and dropped.
		if _, _, _, err = d.expect(rest, "imaginary part"); err != nil {
			return nil, err
		}
	}
	if len(v.Data) != v.Len() {
		return nil, fmt.Errorf("%s has %d values for dims %v: %w", v.display(), len(v.Data), v.Dims, ErrFormat)
	}
	return v, nil
}

func (d decoder) structBody(v *Var, buf []byte) error {
	typ, lenData, rest, err := d.expect(buf, "field name length", miINT32)
	if err != nil {
		return err
	}
	vals, err := d.numbers(typ, lenData)
	if err != nil || len(vals) != 1 || vals[0] <= 0 {
		return fmt.Errorf("%s field name length: %w", v.display(), ErrFormat)
	}
	width := int(vals[0])

	_, names, rest, err := d.expect(rest, "field names", miINT8, miUINT8)
	if err != nil {
		return err
	}
	for i := 0; i+width <= len(names); i += width {
		v.Fields = append(v.Fields, strings.TrimRight(string(names[i:i+width]), "\x00"))
	}

	for e := 0; e < v.Len(); e++ {
		elem := make(map[string]*Var, len(v.Fields))
		for _, field := range v.Fields {
			var body []byte
			if _, body, rest, err = d.expect(rest, "struct field", miMATRIX); err != nil {
				return fmt.Errorf("%s(%d).%s: %w", v.display(), e, field, err)
			}
			fv, err := d.matrix(body)
			if err != nil {
				return fmt.Errorf("%s(%d).%s: %w", v.display(), e, field, err)
			}
			fv.Name = field
			elem[field] = fv
		}
		v.Structs = append(v.Structs, elem)
	}
	return nil
}

// numbers converts a numeric element to float64 values.
func (d decoder) numbers(typ uint32, b []byte) ([]float64, error) {
	var size int
	switch typ {
	case miINT8, miUINT8, miUTF8:
		size = 1
	case miINT16, miUINT16:
		size = 2
	case miINT32, miUINT32, miSINGLE:
		size = 4
	case miDOUBLE, miINT64, miUINT64:
		size = 8
	default:
		return nil, fmt.Errorf("numeric element type %d: %w", typ, ErrFormat)
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("element type %d has %d bytes: %w", typ, len(b), ErrFormat)
	}

	out := make([]float64, len(b)/size)
	for i := range out {
		p := b[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(p[0]))
		case miUINT8, miUTF8:
			out[i] = float64(p[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(p)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(p))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(p)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(p))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(p)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(p))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(p)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(p))
		}
	}
	return out, nil
}
