// Package radialsum provides a plugin collapsing a 2-D frame into a 1-D
// radial profile around the frame center.
package radialsum

import (
	"context"
	"fmt"
	"math"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (f *Factory) Create(config map[string]any) (plugin.Plugin, error) {
	return New(config)
}

func (f *Factory) ID() string {
	return "radialsum"
}

func (f *Factory) Name() string {
	return "Radial sum"
}

func (f *Factory) Description() string {
	return "Sums a 2-D frame into radial bins around the frame center."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bins": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "Number of radial bins of the output profile.",
			},
		},
	}
}

type RadialSum struct {
	plugin.Base
}

func New(config map[string]any) (*RadialSum, error) {
	p := &RadialSum{Base: plugin.NewBase("radialsum", 2, 1)}
	p.Parameters.Declare("bins", 32)

	if err := p.ApplyConfig(config); err != nil {
		return nil, err
	}

	if _, err := p.bins(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *RadialSum) bins() (int, error) {
	bins, err := p.Parameters.Int("bins")
	if err != nil {
		return 0, err
	}

	if bins < 1 {
		return 0, plugin.NewConfigError("radialsum needs at least 1 bin, got %d", bins)
	}

	return bins, nil
}

func (p *RadialSum) CalculateResultShape(input dataset.Shape) (dataset.Shape, error) {
	if input == nil {
		return nil, fmt.Errorf("radialsum requires an upstream shape: %w", plugin.ErrShapeUndetermined)
	}

	if len(input) != 2 {
		return nil, fmt.Errorf("radialsum requires a 2-dimensional input, got %s", input)
	}

	bins, err := p.bins()
	if err != nil {
		return nil, err
	}

	return dataset.Shape{bins}, nil
}

func (p *RadialSum) Execute(_ context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	frame, ok := data.(*dataset.Dataset)
	if !ok {
		return nil, nil, fmt.Errorf("radialsum expects a dataset input, got %T", data)
	}

	shape := frame.Shape()
	if len(shape) != 2 {
		return nil, nil, fmt.Errorf("radialsum requires a 2-dimensional input, got %s", shape)
	}

	bins, err := p.bins()
	if err != nil {
		return nil, nil, err
	}

	rows, cols := shape[0], shape[1]
	cy, cx := float64(rows-1)/2, float64(cols-1)/2
	rmax := math.Hypot(cy, cx)

	profile, err := dataset.New(dataset.Shape{bins})
	if err != nil {
		return nil, nil, err
	}

	values := frame.Values()
	out := profile.Values()

	for row := range rows {
		for col := range cols {
			r := math.Hypot(float64(row)-cy, float64(col)-cx)

			bin := 0
			if rmax > 0 {
				bin = int(r / rmax * float64(bins-1))
			}

			out[bin] += values[row*cols+col]
		}
	}

	return profile, pctx, nil
}
