package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyNames(t *testing.T) {
	assert.Len(t, Classes40.Names(), 40)
	assert.Len(t, Classes13.Names(), 13)
	assert.Nil(t, Taxonomy(7).Names())

	assert.Equal(t, "wall", Classes40.Name(Some(1)))
	assert.Equal(t, "otherprop", Classes40.Name(Some(40)))
	assert.Equal(t, "window", Classes13.Name(Some(13)))
	assert.Equal(t, "unlabeled", Classes13.Name(None))
	assert.Equal(t, "class-14", Classes13.Name(Some(14)))
}

func TestTaxonomyString(t *testing.T) {
	assert.Equal(t, "class40", Classes40.String())
	assert.Equal(t, "class13", Classes13.String())
}

func TestTableMax(t *testing.T) {
	tbl := NewTable("mapping40", []uint16{3, 40, 7})
	assert.Equal(t, 40, tbl.Max())
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, "mapping40", tbl.Name())
}
