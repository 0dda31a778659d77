// Package scan describes the scan geometry of one acquisition: the
// dimensions along which the sample was scanned and the mapping between the
// flat task index and multi-dimensional scan coordinates.
package scan

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/stormlab/diffract/pkg/dataset"
)

// Dimension is one scan axis.
type Dimension struct {
	Label  string  `json:"label"            validate:"required,min=1"`
	N      int     `json:"n_points"         validate:"required,gt=0"`
	Offset float64 `json:"offset"`
	Delta  float64 `json:"delta"`
	Unit   string  `json:"unit,omitempty"`
}

// Context is the explicit scan geometry object passed by reference into the
// engine. It replaces any process-wide scan state.
type Context struct {
	Title      string      `json:"title"`
	Dimensions []Dimension `json:"dimensions" validate:"required,min=1,dive"`
}

// New validates and returns a scan context.
func New(title string, dims ...Dimension) (*Context, error) {
	c := &Context{Title: title, Dimensions: dims}

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid scan context: %w", err)
	}

	return c, nil
}

// NPoints returns the total number of scan points.
func (c *Context) NPoints() int {
	total := 1

	for _, dim := range c.Dimensions {
		total *= dim.N
	}

	return total
}

// Shape returns the scan dimensions as a dataset shape.
func (c *Context) Shape() dataset.Shape {
	shape := make(dataset.Shape, len(c.Dimensions))

	for i, dim := range c.Dimensions {
		shape[i] = dim.N
	}

	return shape
}

// Coordinates converts a flat scan point index into per-dimension indices,
// last dimension fastest.
func (c *Context) Coordinates(index int) ([]int, error) {
	if index < 0 || index >= c.NPoints() {
		return nil, fmt.Errorf("scan point index %d out of range [0, %d)", index, c.NPoints())
	}

	coords := make([]int, len(c.Dimensions))

	for i := len(c.Dimensions) - 1; i >= 0; i-- {
		coords[i] = index % c.Dimensions[i].N
		index /= c.Dimensions[i].N
	}

	return coords, nil
}

// Positions converts a flat scan point index into physical axis positions
// (offset + coordinate * delta per dimension).
func (c *Context) Positions(index int) ([]float64, error) {
	coords, err := c.Coordinates(index)
	if err != nil {
		return nil, err
	}

	positions := make([]float64, len(coords))

	for i, coord := range coords {
		positions[i] = c.Dimensions[i].Offset + float64(coord)*c.Dimensions[i].Delta
	}

	return positions, nil
}

// TaskIndices returns all scan point indices in acquisition order.
func (c *Context) TaskIndices() []int {
	indices := make([]int, c.NPoints())

	for i := range indices {
		indices[i] = i
	}

	return indices
}
