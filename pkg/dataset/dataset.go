// Package dataset provides the n-dimensional data container passed between
// processing plugins.
package dataset

import (
	"fmt"
	"strings"
)

// UnknownDim marks a dimension whose size could not be determined during
// shape propagation.
const UnknownDim = -1

// Shape describes the dimensions of a dataset. A nil Shape means the shape
// has not been computed yet.
type Shape []int

// NumElements returns the total number of samples for the shape. It returns
// 0 for an empty shape and -1 if any dimension is unknown.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}

	total := 1

	for _, dim := range s {
		if dim == UnknownDim {
			return -1
		}

		total *= dim
	}

	return total
}

// IsKnown reports whether every dimension has a concrete size.
func (s Shape) IsKnown() bool {
	if s == nil {
		return false
	}

	for _, dim := range s {
		if dim == UnknownDim {
			return false
		}
	}

	return true
}

// Equals compares two shapes dimension by dimension.
func (s Shape) Equals(other Shape) bool {
	if len(s) != len(other) {
		return false
	}

	for i, dim := range s {
		if dim != other[i] {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}

	clone := make(Shape, len(s))
	copy(clone, s)

	return clone
}

func (s Shape) String() string {
	parts := make([]string, len(s))

	for i, dim := range s {
		if dim == UnknownDim {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("%d", dim)
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// Dataset is a dense n-dimensional array of float64 samples in row-major
// order. It is the payload type produced and consumed by plugins.
type Dataset struct {
	shape  Shape
	values []float64
}

// New creates a zero-filled dataset of the given shape.
func New(shape Shape) (*Dataset, error) {
	n := shape.NumElements()
	if n < 0 {
		return nil, fmt.Errorf("cannot allocate dataset with unknown shape %s", shape)
	}

	return &Dataset{shape: shape.Clone(), values: make([]float64, n)}, nil
}

// Filled creates a dataset of the given shape with every sample set to value.
func Filled(shape Shape, value float64) (*Dataset, error) {
	d, err := New(shape)
	if err != nil {
		return nil, err
	}

	for i := range d.values {
		d.values[i] = value
	}

	return d, nil
}

// FromValues wraps an existing sample buffer. The buffer length must match
// the shape.
func FromValues(shape Shape, values []float64) (*Dataset, error) {
	if shape.NumElements() != len(values) {
		return nil, fmt.Errorf("shape %s does not match %d samples", shape, len(values))
	}

	return &Dataset{shape: shape.Clone(), values: values}, nil
}

// Shape returns the dataset's shape.
func (d *Dataset) Shape() Shape {
	return d.shape
}

// Values returns the underlying sample buffer in row-major order.
func (d *Dataset) Values() []float64 {
	return d.values
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.values)
}

// Sum returns the sum over all samples.
func (d *Dataset) Sum() float64 {
	var total float64

	for _, v := range d.values {
		total += v
	}

	return total
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	values := make([]float64, len(d.values))
	copy(values, d.values)

	return &Dataset{shape: d.shape.Clone(), values: values}
}
