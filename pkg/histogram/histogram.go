// Package histogram implements the fixed-bin-count reduction target used by
// histogram and histogram-equalization kernels (spec §3, §8). Grounded on
// original_source/src/libcvpg/core/histogram.hpp.
package histogram

import "github.com/cvpg/imageproc/pkg/pperr"

const DefaultBins = 256

// Histogram holds per-bin counts. Counts are accumulated as float64 so the
// same type serves both integer pixel counts and real-valued reductions.
type Histogram struct {
	Counts []float64
}

// New allocates a zeroed histogram with the given bin count.
func New(bins int) *Histogram {
	return &Histogram{Counts: make([]float64, bins)}
}

// Zero returns a zero histogram with the given bin count, satisfying
// h.Add(Zero(h.Bins())) == h.
func Zero(bins int) *Histogram {
	return New(bins)
}

func (h *Histogram) Bins() int {
	return len(h.Counts)
}

// Add returns the element-wise sum of h and other. Bin counts must match or
// the call fails with ShapeMismatch.
func (h *Histogram) Add(other *Histogram) (*Histogram, error) {
	if h.Bins() != other.Bins() {
		return nil, pperr.New(pperr.ShapeMismatch, "histogram bin count mismatch: %d vs %d", h.Bins(), other.Bins())
	}

	out := New(h.Bins())
	for i := range out.Counts {
		out.Counts[i] = h.Counts[i] + other.Counts[i]
	}
	return out, nil
}

// Equal reports whether two histograms have identical bin counts.
func (h *Histogram) Equal(other *Histogram) bool {
	if h.Bins() != other.Bins() {
		return false
	}
	for i := range h.Counts {
		if h.Counts[i] != other.Counts[i] {
			return false
		}
	}
	return true
}

// Total sums every bin.
func (h *Histogram) Total() float64 {
	var total float64
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// CDF returns the cumulative distribution at bin v (inclusive).
func (h *Histogram) CDF(v int) float64 {
	var sum float64
	for i := 0; i <= v && i < len(h.Counts); i++ {
		sum += h.Counts[i]
	}
	return sum
}

// CDFMin returns the smallest nonzero cumulative value, used by histogram
// equalization's normalization term.
func (h *Histogram) CDFMin() float64 {
	running := 0.0
	for _, c := range h.Counts {
		running += c
		if running > 0 {
			return running
		}
	}
	return 0
}
