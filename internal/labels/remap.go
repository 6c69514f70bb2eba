package labels

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a label array's backing data does not match its
// declared dimensions.
var ErrShape = errors.New("label array shape mismatch")

// Remapper projects raw label IDs through mapping40 and then mapping13.
// The 13-class table is indexed with the 1-based 40-class ID.
type Remapper struct {
	Map40 Table
	Map13 Table
}

// Remap maps one raw label ID. When the 40-class lookup succeeds but the
// 13-class lookup does not, c40 is still returned alongside the error.
func (r Remapper) Remap(raw int) (c40, c13 ClassID, err error) {
	c40, err = r.Map40.Lookup(raw)
	if err != nil {
		return None, None, fmt.Errorf("raw label %d: %w", raw, err)
	}
	c13, err = r.Map13.Lookup(c40.ID())
	if err != nil {
		return c40, None, fmt.Errorf("raw label %d: %w", raw, err)
	}
	return c40, c13, nil
}

// lutEntry caches the stored bytes for one raw ID. err is kept rather than
// raised so that bad table entries only fail a run when a pixel uses them.
type lutEntry struct {
	b40, b13 uint8
	err      error
}

// Compiled is a Remapper flattened into a lookup table over the raw domain.
type Compiled struct {
	entries []lutEntry
	name    string
}

// Compile evaluates Remap for every raw ID in mapping40's domain.
func (r Remapper) Compile() *Compiled {
	c := &Compiled{entries: make([]lutEntry, r.Map40.Len()), name: r.Map40.Name()}
	for raw := range c.entries {
		c40, c13, err := r.Remap(raw)
		c.entries[raw] = lutEntry{b40: c40.Byte(), b13: c13.Byte(), err: err}
	}
	return c
}

// RemapPlane remaps one sample's raw labels into freshly allocated 40- and
// 13-class byte planes.
func (c *Compiled) RemapPlane(raw []uint16) (seg40, seg13 []uint8, err error) {
	seg40 = make([]uint8, len(raw))
	seg13 = make([]uint8, len(raw))
	for i, v := range raw {
		if int(v) >= len(c.entries) {
			return nil, nil, fmt.Errorf("raw label %d at pixel %d: %s[%d] with %d entries: %w",
				v, i, c.name, v, len(c.entries), ErrOutOfDomain)
		}
		e := c.entries[v]
		if e.err != nil {
			return nil, nil, fmt.Errorf("pixel %d: %w", i, e.err)
		}
		seg40[i] = e.b40
		seg13[i] = e.b13
	}
	return seg40, seg13, nil
}

// RemapPlane is a convenience for a single plane; callers remapping many
// samples should Compile once.
func (r Remapper) RemapPlane(raw []uint16) (seg40, seg13 []uint8, err error) {
	return r.Compile().RemapPlane(raw)
}

// LabelArray is a dense (samples, height, width) array of raw label IDs in
// natural row-major layout.
type LabelArray struct {
	Samples, Height, Width int
	Data                   []uint16
}

// ByteArray is a dense (samples, height, width) array of stored class bytes.
type ByteArray struct {
	Samples, Height, Width int
	Data                   []uint8
}

// Plane returns the bytes of sample i (zero-based).
func (a ByteArray) Plane(i int) []uint8 {
	n := a.Height * a.Width
	return a.Data[i*n : (i+1)*n]
}

// Remapped holds both taxonomies for a label array.
type Remapped struct {
	Seg40 ByteArray
	Seg13 ByteArray
}

// RemapArray remaps a whole label array. The input is not modified.
func (r Remapper) RemapArray(arr LabelArray) (Remapped, error) {
	n := arr.Height * arr.Width
	if arr.Samples < 0 || n < 0 || len(arr.Data) != arr.Samples*n {
		return Remapped{}, fmt.Errorf("%d values for %dx%dx%d: %w",
			len(arr.Data), arr.Samples, arr.Height, arr.Width, ErrShape)
	}

	c := r.Compile()
	out := Remapped{
		Seg40: ByteArray{Samples: arr.Samples, Height: arr.Height, Width: arr.Width, Data: make([]uint8, len(arr.Data))},
		Seg13: ByteArray{Samples: arr.Samples, Height: arr.Height, Width: arr.Width, Data: make([]uint8, len(arr.Data))},
	}
	for i := 0; i < arr.Samples; i++ {
		s40, s13, err := c.RemapPlane(arr.Data[i*n : (i+1)*n])
		if err != nil {
			return Remapped{}, fmt.Errorf("sample %d: %w", i, err)
		}
		copy(out.Seg40.Plane(i), s40)
		copy(out.Seg13.Plane(i), s13)
	}
	return out, nil
}
