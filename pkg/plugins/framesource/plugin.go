// Package framesource provides the input plugin producing one detector frame
// per scan point.
package framesource

import (
	"context"
	"fmt"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

const (
	// FillOnes fills every frame with ones.
	FillOnes = "ones"
	// FillIndex fills every frame with the scan point index.
	FillIndex = "index"
)

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (f *Factory) Create(config map[string]any) (plugin.Plugin, error) {
	return New(config)
}

func (f *Factory) ID() string {
	return "framesource"
}

func (f *Factory) Name() string {
	return "Frame source"
}

func (f *Factory) Description() string {
	return "Produces one synthetic detector frame per scan point index."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"size": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer", "minimum": 1},
				"description": "Detector frame shape, e.g. [4, 4]. Required before shape propagation.",
			},
			"fill_mode": map[string]any{
				"type":        "string",
				"enum":        []string{FillOnes, FillIndex},
				"description": "Sample fill policy: all ones, or the scan point index.",
			},
		},
	}
}

type FrameSource struct {
	plugin.Base
}

func New(config map[string]any) (*FrameSource, error) {
	p := &FrameSource{Base: plugin.NewBase("framesource", plugin.AnyDim, 2)}
	p.Parameters.Declare("size", nil)
	p.Parameters.Declare("fill_mode", FillOnes)

	if err := p.ApplyConfig(config); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *FrameSource) CalculateResultShape(input dataset.Shape) (dataset.Shape, error) {
	if input != nil {
		return nil, fmt.Errorf("framesource must be the root of the tree")
	}

	size, err := p.frameShape()
	if err != nil {
		return nil, err
	}

	return size, nil
}

func (p *FrameSource) Execute(_ context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	index, ok := data.(int)
	if !ok {
		return nil, nil, fmt.Errorf("framesource expects an integer scan point index, got %T", data)
	}

	size, err := p.frameShape()
	if err != nil {
		return nil, nil, err
	}

	fill := 1.0

	mode, err := p.ParamValue("fill_mode")
	if err != nil {
		return nil, nil, err
	}

	if mode == FillIndex {
		fill = float64(index)
	}

	frame, err := dataset.Filled(size, fill)
	if err != nil {
		return nil, nil, err
	}

	out := pctx.Merged(plugin.ProcContext{"scan_index": index})

	return frame, out, nil
}

func (p *FrameSource) frameShape() (dataset.Shape, error) {
	value, err := p.ParamValue("size")
	if err != nil {
		return nil, err
	}

	if value == nil {
		return nil, fmt.Errorf("framesource frame size is unset: %w", plugin.ErrShapeUndetermined)
	}

	size, err := p.Parameters.IntSlice("size")
	if err != nil {
		return nil, err
	}

	shape := make(dataset.Shape, len(size))
	copy(shape, size)

	return shape, nil
}
