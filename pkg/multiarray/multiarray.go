// Package multiarray implements the rank 1-3 row-major tensor used as a
// metadata container for detection-style outputs (spec §3, §8). Grounded on
// the shape/stride bookkeeping pattern of original_source's core containers;
// the original's concrete detection-box container was not retrieved, so the
// indexing contract is derived directly from spec §3/§8.
package multiarray

import "github.com/cvpg/imageproc/pkg/pperr"

// MultiArray is a fixed-shape, row-major tensor of rank 1 to 3.
type MultiArray struct {
	Shape []int
	Data  []float64
}

// New allocates a zeroed array of the given shape. Reshaping after
// construction is not supported, matching spec §3.
func New(shape []int) (*MultiArray, error) {
	if len(shape) < 1 || len(shape) > 3 {
		return nil, pperr.New(pperr.InvalidParameter, "multi-array rank must be 1-3, got %d", len(shape))
	}

	total := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, pperr.New(pperr.InvalidParameter, "multi-array dimension must be positive, got %d", d)
		}
		total *= d
	}

	return &MultiArray{Shape: append([]int(nil), shape...), Data: make([]float64, total)}, nil
}

// Len returns the total element count, the product of Shape.
func (m *MultiArray) Len() int {
	return len(m.Data)
}

// strides computes the row-major stride for each dimension.
func (m *MultiArray) strides() []int {
	s := make([]int, len(m.Shape))
	acc := 1
	for i := len(m.Shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= m.Shape[i]
	}
	return s
}

// offset computes the flat index for indices, validating the leading
// dimension per spec §3/§8: an out-of-range leading index fails with
// IndexOutOfRange.
func (m *MultiArray) offset(indices []int) (int, error) {
	if len(indices) != len(m.Shape) {
		return 0, pperr.New(pperr.InvalidParameter, "expected %d indices, got %d", len(m.Shape), len(indices))
	}

	if indices[0] < 0 || indices[0] >= m.Shape[0] {
		return 0, pperr.New(pperr.IndexOutOfRange, "leading index %d not in [0,%d)", indices[0], m.Shape[0])
	}

	strides := m.strides()
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= m.Shape[i] {
			if i == 0 {
				return 0, pperr.New(pperr.IndexOutOfRange, "leading index %d not in [0,%d)", idx, m.Shape[0])
			}
			return 0, pperr.New(pperr.InvalidParameter, "index %d out of range for dimension %d (size %d)", idx, i, m.Shape[i])
		}
		off += idx * strides[i]
	}

	return off, nil
}

// IndexOutOfRange is the sentinel code callers should check for with
// pperr.Is(err, multiarray.IndexOutOfRange) when Get/Set fails on the
// leading dimension.
const IndexOutOfRange = pperr.IndexOutOfRange

// Get reads the element at indices.
func (m *MultiArray) Get(indices ...int) (float64, error) {
	off, err := m.offset(indices)
	if err != nil {
		return 0, err
	}
	return m.Data[off], nil
}

// Set writes the element at indices.
func (m *MultiArray) Set(value float64, indices ...int) error {
	off, err := m.offset(indices)
	if err != nil {
		return err
	}
	m.Data[off] = value
	return nil
}
