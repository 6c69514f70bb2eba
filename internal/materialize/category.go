// Package materialize writes per-sample PNG files into the split-aware
// output tree, optionally with colorized copies alongside.
package materialize

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/nyuv2/internal/dataset"
)

// Category is one of the per-sample output kinds.
type Category string

const (
	Image Category = "image"
	Seg40 Category = "seg40"
	Seg13 Category = "seg13"
	Depth Category = "depth"
)

// Categories lists the output kinds in the order they are written.
var Categories = []Category{Seg40, Seg13, Depth, Image}

// ColoredDir returns the side directory for colorized copies, or "" when the
// category has none.
func (c Category) ColoredDir() string {
	switch c {
	case Seg40:
		return "colored_40"
	case Seg13:
		return "colored_13"
	case Depth:
		return "colored_depth"
	}
	return ""
}

// FileName returns the name of a sample file for a 1-based index.
func FileName(index int) string {
	return fmt.Sprintf("%05d.png", index)
}

// SplitDir returns <root>/<category>/<split>.
func SplitDir(root string, c Category, split dataset.Split) string {
	return filepath.Join(root, string(c), string(split))
}
