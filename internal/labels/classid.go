// Package labels remaps raw NYUv2 label IDs into the 40- and 13-class
// taxonomies and provides the colour palette used to visualise them.
package labels

import "fmt"

// Unlabeled is the stored byte for pixels that carry no class. It matches the
// value existing consumers of the extracted dataset expect (0 - 1 as uint8).
const Unlabeled uint8 = 255

// ClassID is a 1-based class in a taxonomy, or None for unlabeled pixels.
// The zero value is None.
type ClassID struct {
	id uint16
	ok bool
}

// None is the unlabeled class.
var None = ClassID{}

// Some returns the class with the given 1-based id. An id of 0 is the table
// sentinel and yields None.
func Some(id uint16) ClassID {
	if id == 0 {
		return None
	}
	return ClassID{id: id, ok: true}
}

// FromByte decodes a stored label byte.
func FromByte(b uint8) ClassID {
	if b == Unlabeled {
		return None
	}
	return Some(uint16(b) + 1)
}

// Get returns the 1-based id and whether the class is set.
func (c ClassID) Get() (uint16, bool) {
	return c.id, c.ok
}

// Valid reports whether c names a class.
func (c ClassID) Valid() bool { return c.ok }

// ID returns the 1-based id, or 0 for None. This is the value the next table
// in the chain is indexed with.
func (c ClassID) ID() int {
	if !c.ok {
		return 0
	}
	return int(c.id)
}

// Byte returns the on-disk encoding: the zero-based class, or Unlabeled.
func (c ClassID) Byte() uint8 {
	if !c.ok {
		return Unlabeled
	}
	return uint8(c.id - 1)
}

func (c ClassID) String() string {
	if !c.ok {
		return "none"
	}
	return fmt.Sprintf("class(%d)", c.id)
}
