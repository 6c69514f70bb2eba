package dataset

import (
	"fmt"

	"github.com/banshee-data/nyuv2/internal/labels"
	"github.com/banshee-data/nyuv2/internal/matfile"
)

const (
	mapping40Var = "mapClass"
	mapping13Var = "classMapping13"
)

// LoadMappings builds the remapper from the two companion MAT-files. The
// 40-class table is the mapClass row vector; the 13-class table is the first
// field of the classMapping13 struct.
func LoadMappings(path40, path13 string) (labels.Remapper, error) {
	f40, err := matfile.Open(path40)
	if err != nil {
		return labels.Remapper{}, err
	}
	v40, err := f40.Var(mapping40Var)
	if err != nil {
		return labels.Remapper{}, fmt.Errorf("%s: %w", path40, err)
	}
	m40, err := v40.Uint16s()
	if err != nil {
		return labels.Remapper{}, fmt.Errorf("%s: %w", path40, err)
	}

	f13, err := matfile.Open(path13)
	if err != nil {
		return labels.Remapper{}, err
	}
	s13, err := f13.Var(mapping13Var)
	if err != nil {
		return labels.Remapper{}, fmt.Errorf("%s: %w", path13, err)
	}
	v13, err := s13.FieldAt(0)
	if err != nil {
		return labels.Remapper{}, fmt.Errorf("%s: %w", path13, err)
	}
	m13, err := v13.Uint16s()
	if err != nil {
		return labels.Remapper{}, fmt.Errorf("%s: %w", path13, err)
	}

	return labels.Remapper{
		Map40: labels.NewTable("mapping40", m40),
		Map13: labels.NewTable("mapping13", m13),
	}, nil
}
