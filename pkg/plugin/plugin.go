// Package plugin defines the contracts for pluggable processing units.
package plugin

import (
	"context"

	"github.com/stormlab/diffract/pkg/dataset"
)

// AnyDim is used for input/output dimensionality declarations when a plugin
// accepts or produces data of arbitrary dimensionality.
const AnyDim = -1

// ProcContext carries auxiliary keyword data through the plugin chain. Each
// plugin receives its parent's emitted context shallow-merged with its own.
type ProcContext map[string]any

// Merged returns a new context with the entries of other laid over the
// receiver's entries.
func (c ProcContext) Merged(other ProcContext) ProcContext {
	merged := make(ProcContext, len(c)+len(other))

	for k, v := range c {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}

// Configurable exposes get/set access to a plugin's named parameters.
type Configurable interface {
	ParamValue(name string) (any, error)
	SetParamValue(name string, value any) error
	ParamNames() []string
}

// Plugin is a configurable unit of computation in a workflow tree.
//
// Execute is called once per task. The data argument is the parent node's
// output, or the raw task argument for the root node. Plugins may mutate
// their own cached state between calls but must not touch tree topology.
type Plugin interface {
	Configurable

	Type() string
	InputDataDim() int
	OutputDataDim() int

	// PreExecute is the one-time setup hook called during tree preparation.
	PreExecute() error

	// CalculateResultShape translates the upstream shape and the plugin's
	// parameters into the plugin's output shape. The root plugin receives a
	// nil input shape and derives the shape purely from its parameters.
	CalculateResultShape(input dataset.Shape) (dataset.Shape, error)

	Execute(ctx context.Context, data any, pctx ProcContext) (any, ProcContext, error)
}

// Factory creates plugin instances and provides metadata about the plugin
// type.
type Factory interface {
	Create(config map[string]any) (Plugin, error)
	ID() string
	Name() string
	Description() string
	Schema() map[string]any
}
