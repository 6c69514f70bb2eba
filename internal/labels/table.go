package labels

import (
	"errors"
	"fmt"
)

// ErrOutOfDomain is returned when a label ID does not index a mapping table.
// It marks a malformed dataset file and is never recovered from.
var ErrOutOfDomain = errors.New("label id outside mapping table domain")

// Table is a dense lookup table indexed by source class ID. Index 0 is the
// background sentinel and always maps to None.
type Table struct {
	name   string
	values []uint16
}

// NewTable builds a table from the values stored in the mapping file. The
// sentinel entry is prepended, so values[0] becomes index 1.
func NewTable(name string, values []uint16) Table {
	v := make([]uint16, 0, len(values)+1)
	v = append(v, 0)
	v = append(v, values...)
	return Table{name: name, values: v}
}

// Name returns the table name used in error messages.
func (t Table) Name() string { return t.name }

// Len returns the number of entries including the sentinel.
func (t Table) Len() int { return len(t.values) }

// Max returns the largest class ID the table maps to.
func (t Table) Max() int {
	max := 0
	for _, v := range t.values {
		if int(v) > max {
			max = int(v)
		}
	}
	return max
}

// Lookup maps a source ID through the table.
func (t Table) Lookup(id int) (ClassID, error) {
	if id < 0 || id >= len(t.values) {
		return None, fmt.Errorf("%s[%d] with %d entries: %w", t.name, id, len(t.values), ErrOutOfDomain)
	}
	return Some(t.values[id]), nil
}
