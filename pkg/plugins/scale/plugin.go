// Package scale provides a shape-preserving plugin multiplying every sample
// by a constant factor.
package scale

import (
	"context"
	"fmt"

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
	return "scale"
}

func (f *Factory) Name() string {
	return "Scale"
}

func (f *Factory) Description() string {
	return "Multiplies every sample of the input frame by a constant factor."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"factor": map[string]any{
				"type":        "number",
				"description": "Multiplication factor applied to every sample.",
			},
		},
	}
}

type Scale struct {
	plugin.Base
}

func New(config map[string]any) (*Scale, error) {
	p := &Scale{Base: plugin.NewBase("scale", plugin.AnyDim, plugin.AnyDim)}
	p.Parameters.Declare("factor", 1.0)

	if err := p.ApplyConfig(config); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Scale) CalculateResultShape(input dataset.Shape) (dataset.Shape, error) {
	if input == nil {
		return nil, fmt.Errorf("scale requires an upstream shape: %w", plugin.ErrShapeUndetermined)
	}

	return input.Clone(), nil
}

func (p *Scale) Execute(_ context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	frame, ok := data.(*dataset.Dataset)
	if !ok {
		return nil, nil, fmt.Errorf("scale expects a dataset input, got %T", data)
	}

	factor, err := p.Parameters.Float("factor")
	if err != nil {
		return nil, nil, err
	}

	out := frame.Clone()

	values := out.Values()
	for i := range values {
		values[i] *= factor
	}

	return out, pctx, nil
}
