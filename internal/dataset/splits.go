package dataset

import (
	"errors"
	"fmt"

	"github.com/banshee-data/nyuv2/internal/matfile"
)

// ErrSplit is returned for split lists that reference samples outside the
// collection or place a sample in both partitions.
var ErrSplit = errors.New("invalid split definition")

// Split names an output partition.
type Split string

const (
	Train Split = "train"
	Test  Split = "test"
)

// SplitNames lists the partitions in the order they are written.
var SplitNames = []Split{Train, Test}

// Splits holds the 1-based sample indices of each partition.
type Splits struct {
	Train []int
	Test  []int
}

// Indices returns the 1-based indices of a partition.
func (s Splits) Indices(split Split) []int {
	switch split {
	case Train:
		return s.Train
	case Test:
		return s.Test
	}
	return nil
}

// Len returns the number of indices across both partitions.
func (s Splits) Len() int { return len(s.Train) + len(s.Test) }

// Validate checks that indices fall in 1..samples and the partitions are
// disjoint.
func (s Splits) Validate(samples int) error {
	seen := make(map[int]Split, s.Len())
	for _, split := range SplitNames {
		for _, idx := range s.Indices(split) {
			if idx < 1 || idx > samples {
				return fmt.Errorf("%s index %d outside 1..%d: %w", split, idx, samples, ErrSplit)
			}
			if prev, ok := seen[idx]; ok {
				return fmt.Errorf("index %d in both %s and %s: %w", idx, prev, split, ErrSplit)
			}
			seen[idx] = split
		}
	}
	return nil
}

// LoadSplits reads trainNdxs and testNdxs from a splits MAT-file.
func LoadSplits(path string) (Splits, error) {
	f, err := matfile.Open(path)
	if err != nil {
		return Splits{}, err
	}
	var s Splits
	for _, split := range SplitNames {
		v, err := f.Var(string(split) + "Ndxs")
		if err != nil {
			return Splits{}, fmt.Errorf("%s: %w", path, err)
		}
		idx, err := v.Ints()
		if err != nil {
			return Splits{}, fmt.Errorf("%s: %w", path, err)
		}
		if split == Train {
			s.Train = idx
		} else {
			s.Test = idx
		}
	}
	return s, nil
}
