package labels

import "fmt"

// Taxonomy identifies a reduced class set by its size.
type Taxonomy int

const (
	// Classes40 is the 40-class set of Gupta et al.
	Classes40 Taxonomy = 40
	// Classes13 is the 13-class set used for coarse scene parsing.
	Classes13 Taxonomy = 13
)

var names40 = []string{
	"wall", "floor", "cabinet", "bed", "chair", "sofa", "table", "door",
	"window", "bookshelf", "picture", "counter", "blinds", "desk", "shelves",
	"curtain", "dresser", "pillow", "mirror", "floor mat", "clothes",
	"ceiling", "books", "refridgerator", "television", "paper", "towel",
	"shower curtain", "box", "whiteboard", "person", "night stand", "toilet",
	"sink", "lamp", "bathtub", "bag", "otherstructure", "otherfurniture",
	"otherprop",
}

var names13 = []string{
	"bed", "books", "ceiling", "chair", "floor", "furniture", "objects",
	"picture", "sofa", "table", "tv", "wall", "window",
}

// Names returns the class names indexed by stored byte value.
func (t Taxonomy) Names() []string {
	switch t {
	case Classes40:
		return names40
	case Classes13:
		return names13
	}
	return nil
}

// Name returns the display name of a class in the taxonomy.
func (t Taxonomy) Name(c ClassID) string {
	if !c.Valid() {
		return "unlabeled"
	}
	names := t.Names()
	if i := c.ID() - 1; i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("class-%d", c.ID())
}

func (t Taxonomy) String() string {
	return fmt.Sprintf("class%d", int(t))
}
