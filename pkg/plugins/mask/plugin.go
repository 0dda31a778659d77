// Package mask provides a plugin zeroing samples outside a configured
// threshold window.
package mask

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
	return "mask"
}

func (f *Factory) Name() string {
	return "Threshold mask"
}

func (f *Factory) Description() string {
	return "Zeroes samples below the lower or above the upper threshold."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lower": map[string]any{
				"type":        "number",
				"description": "Samples strictly below this value are zeroed.",
			},
			"upper": map[string]any{
				"type":        "number",
				"description": "Samples strictly above this value are zeroed.",
			},
		},
	}
}

type Mask struct {
	plugin.Base
}

func New(config map[string]any) (*Mask, error) {
	p := &Mask{Base: plugin.NewBase("mask", plugin.AnyDim, plugin.AnyDim)}
	p.Parameters.Declare("lower", math.Inf(-1))
	p.Parameters.Declare("upper", math.Inf(1))

	if err := p.ApplyConfig(config); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Mask) CalculateResultShape(input dataset.Shape) (dataset.Shape, error) {
	if input == nil {
		return nil, fmt.Errorf("mask requires an upstream shape: %w", plugin.ErrShapeUndetermined)
	}

	return input.Clone(), nil
}

func (p *Mask) Execute(_ context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	frame, ok := data.(*dataset.Dataset)
	if !ok {
		return nil, nil, fmt.Errorf("mask expects a dataset input, got %T", data)
	}

	lower, err := p.Parameters.Float("lower")
	if err != nil {
		return nil, nil, err
	}

	upper, err := p.Parameters.Float("upper")
	if err != nil {
		return nil, nil, err
	}

	out := frame.Clone()

	values := out.Values()
	for i, v := range values {
		if v < lower || v > upper {
			values[i] = 0
		}
	}

	return out, pctx, nil
}
