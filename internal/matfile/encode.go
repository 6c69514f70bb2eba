package matfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Encoder writes level 5 MAT-files. Numeric arrays are stored as doubles.
type Encoder struct {
	w        io.Writer
	order    binary.ByteOrder
	header   bool
	Compress bool
}

// NewEncoder returns a little-endian encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, order: binary.LittleEndian}
}

// NewDouble builds a double array. data is in column-major order.
func NewDouble(name string, dims []int, data []float64) *Var {
	return &Var{Name: name, Class: ClassDouble, Dims: dims, Data: data}
}

// NewStruct builds a struct array with one map of field values per element.
func NewStruct(name string, dims []int, fields []string, elems ...map[string]*Var) *Var {
	return &Var{Name: name, Class: ClassStruct, Dims: dims, Fields: fields, Structs: elems}
}

// Encode appends v as a top-level variable, writing the file header first.
func (e *Encoder) Encode(v *Var) error {
	if !e.header {
		if err := e.writeHeader(); err != nil {
			return err
		}
		e.header = true
	}

	var body bytes.Buffer
	if err := e.matrix(&body, v); err != nil {
		return err
	}
	if !e.Compress {
		_, err := e.w.Write(body.Bytes())
		return err
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(body.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := e.tag(e.w, miCOMPRESSED, z.Len()); err != nil {
		return err
	}
	_, err := e.w.Write(z.Bytes())
	return err
}

func (e *Encoder) writeHeader() error {
	h := make([]byte, headerLen)
	for i := range h[:116] {
		h[i] = ' '
	}
	copy(h, "MATLAB 5.0 MAT-file, written by nyuv2 matfile")
	e.order.PutUint16(h[124:], 0x0100)
	copy(h[126:], "IM")
	_, err := e.w.Write(h)
	return err
}

func (e *Encoder) tag(w io.Writer, typ uint32, n int) error {
	var b [8]byte
	e.order.PutUint32(b[0:], typ)
	e.order.PutUint32(b[4:], uint32(n))
	_, err := w.Write(b[:])
	return err
}

func (e *Encoder) element(w *bytes.Buffer, typ uint32, data []byte) error {
	if err := e.tag(w, typ, len(data)); err != nil {
		return err
	}
	w.Write(data)
	w.Write(make([]byte, align8(len(data))-len(data)))
	return nil
}

func (e *Encoder) matrix(w io.Writer, v *Var) error {
	var body bytes.Buffer

	flags := make([]byte, 8)
	word := uint32(v.Class)
	if v.Logical {
		word |= flagLogical
	}
	e.order.PutUint32(flags, word)
	if err := e.element(&body, miUINT32, flags); err != nil {
		return err
	}

	dims := make([]byte, 4*len(v.Dims))
	for i, d := range v.Dims {
		e.order.PutUint32(dims[4*i:], uint32(int32(d)))
	}
	if err := e.element(&body, miINT32, dims); err != nil {
		return err
	}
	if err := e.element(&body, miINT8, []byte(v.Name)); err != nil {
		return err
	}

	switch v.Class {
	case ClassStruct:
		width := 1
		for _, f := range v.Fields {
			if len(f)+1 > width {
				width = len(f) + 1
			}
		}
		// Field name length is written in the small element format.
		var small [8]byte
		e.order.PutUint32(small[0:], 4<<16|miINT32)
		e.order.PutUint32(small[4:], uint32(width))
		body.Write(small[:])

		names := make([]byte, width*len(v.Fields))
		for i, f := range v.Fields {
			copy(names[i*width:], f)
		}
		if err := e.element(&body, miINT8, names); err != nil {
			return err
		}
		for i, elem := range v.Structs {
			for _, f := range v.Fields {
				fv, ok := elem[f]
				if !ok {
					return fmt.Errorf("struct %s element %d missing field %s", v.Name, i, f)
				}
				field := *fv
				field.Name = ""
				if err := e.matrix(&body, &field); err != nil {
					return err
				}
			}
		}
	case ClassCell:
		for _, c := range v.Cells {
			if err := e.matrix(&body, c); err != nil {
				return err
			}
		}
	default:
		data := make([]byte, 8*len(v.Data))
		for i, f := range v.Data {
			e.order.PutUint64(data[8*i:], math.Float64bits(f))
		}
		if err := e.element(&body, miDOUBLE, data); err != nil {
			return err
		}
	}

	if err := e.tag(w, miMATRIX, body.Len()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}
