// Package report accumulates per-class pixel counts while label maps are
// written and renders them as charts.
package report

import (
	"image"
	"sync"

	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/labels"
	"github.com/banshee-data/nyuv2/internal/materialize"
)

type key struct {
	tax   labels.Taxonomy
	split dataset.Split
}

// Histogram counts pixels per stored class byte, per taxonomy and split.
// It is safe for concurrent use.
type Histogram struct {
	mu     sync.Mutex
	counts map[key]*[256]int64
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[key]*[256]int64)}
}

// Add counts the bytes of one label plane.
func (h *Histogram) Add(tax labels.Taxonomy, split dataset.Split, seg []uint8) {
	var local [256]int64
	for _, b := range seg {
		local[b]++
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	bins, ok := h.counts[key{tax, split}]
	if !ok {
		bins = new([256]int64)
		h.counts[key{tax, split}] = bins
	}
	for i, n := range local {
		bins[i] += n
	}
}

// Observe feeds label frames written by a Materializer into the histogram.
// Frames of other categories are ignored.
func (h *Histogram) Observe(c materialize.Category, split dataset.Split, index int, frame image.Image) {
	var tax labels.Taxonomy
	switch c {
	case materialize.Seg40:
		tax = labels.Classes40
	case materialize.Seg13:
		tax = labels.Classes13
	default:
		return
	}
	if g, ok := frame.(*image.Gray); ok {
		h.Add(tax, split, g.Pix)
	}
}

// Counts returns the pixel count of every class of the taxonomy in class
// order, followed by the unlabeled count.
func (h *Histogram) Counts(tax labels.Taxonomy, split dataset.Split) []int64 {
	n := int(tax)
	out := make([]int64, n+1)
	h.mu.Lock()
	defer h.mu.Unlock()
	bins, ok := h.counts[key{tax, split}]
	if !ok {
		return out
	}
	copy(out, bins[:n])
	out[n] = bins[labels.Unlabeled]
	return out
}

// Categories returns the bar labels matching Counts.
func Categories(tax labels.Taxonomy) []string {
	out := make([]string, 0, int(tax)+1)
	for id := 1; id <= int(tax); id++ {
		out = append(out, tax.Name(labels.Some(uint16(id))))
	}
	return append(out, tax.Name(labels.None))
}

// Empty reports whether nothing has been counted.
func (h *Histogram) Empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.counts) == 0
}
