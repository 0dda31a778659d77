// Package sumall provides a plugin summing all samples into a single value.
package sumall

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
	return "sumall"
}

func (f *Factory) Name() string {
	return "Sum all"
}

func (f *Factory) Description() string {
	return "Sums every sample of the input into a single-element result."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

type SumAll struct {
	plugin.Base
}

func New(config map[string]any) (*SumAll, error) {
	p := &SumAll{Base: plugin.NewBase("sumall", plugin.AnyDim, 1)}

	if err := p.ApplyConfig(config); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *SumAll) CalculateResultShape(input dataset.Shape) (dataset.Shape, error) {
	if input == nil {
		return nil, fmt.Errorf("sumall requires an upstream shape: %w", plugin.ErrShapeUndetermined)
	}

	return dataset.Shape{1}, nil
}

func (p *SumAll) Execute(_ context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	frame, ok := data.(*dataset.Dataset)
	if !ok {
		return nil, nil, fmt.Errorf("sumall expects a dataset input, got %T", data)
	}

	total, err := dataset.FromValues(dataset.Shape{1}, []float64{frame.Sum()})
	if err != nil {
		return nil, nil, err
	}

	return total, pctx, nil
}
