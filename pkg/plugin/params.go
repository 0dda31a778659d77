package plugin

import (
	"fmt"
)

// Params is a plugin's parameter collection. Parameters must be declared
// with a default before they can be read or written, which keeps parameter
// names a closed set per plugin type.
type Params struct {
	values map[string]any
	order  []string
}

func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Declare registers a parameter with its default value.
func (p *Params) Declare(name string, defaultValue any) {
	if _, exists := p.values[name]; !exists {
		p.order = append(p.order, name)
	}

	p.values[name] = defaultValue
}

func (p *Params) Value(name string) (any, error) {
	value, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("parameter %q is not declared", name)
	}

	return value, nil
}

func (p *Params) Set(name string, value any) error {
	if _, ok := p.values[name]; !ok {
		return fmt.Errorf("parameter %q is not declared", name)
	}

	p.values[name] = value

	return nil
}

func (p *Params) Names() []string {
	names := make([]string, len(p.order))
	copy(names, p.order)

	return names
}

// Int reads a parameter as an int, accepting float64 values from JSON
// configs.
func (p *Params) Int(name string) (int, error) {
	value, err := p.Value(name)
	if err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q is not an integer (got %T)", name, value)
	}
}

func (p *Params) Float(name string) (float64, error) {
	value, err := p.Value(name)
	if err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q is not a number (got %T)", name, value)
	}
}

// IntSlice reads a parameter as a slice of ints, accepting []any from JSON
// configs.
func (p *Params) IntSlice(name string) ([]int, error) {
	value, err := p.Value(name)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case []int:
		return v, nil
	case []any:
		ints := make([]int, len(v))

		for i, item := range v {
			switch n := item.(type) {
			case int:
				ints[i] = n
			case float64:
				ints[i] = int(n)
			default:
				return nil, fmt.Errorf("parameter %q element %d is not an integer", name, i)
			}
		}

		return ints, nil
	default:
		return nil, fmt.Errorf("parameter %q is not an integer list (got %T)", name, value)
	}
}

// Export returns a copy of all parameter values keyed by name.
func (p *Params) Export() map[string]any {
	exported := make(map[string]any, len(p.values))

	for name, value := range p.values {
		exported[name] = value
	}

	return exported
}

// Base provides the Configurable part of a plugin and its type metadata.
// Concrete plugins embed it and declare their parameters at construction.
type Base struct {
	PluginType string
	InputDim   int
	OutputDim  int
	Parameters *Params
}

func NewBase(pluginType string, inputDim, outputDim int) Base {
	return Base{
		PluginType: pluginType,
		InputDim:   inputDim,
		OutputDim:  outputDim,
		Parameters: NewParams(),
	}
}

func (b *Base) Type() string {
	return b.PluginType
}

func (b *Base) InputDataDim() int {
	return b.InputDim
}

func (b *Base) OutputDataDim() int {
	return b.OutputDim
}

func (b *Base) ParamValue(name string) (any, error) {
	return b.Parameters.Value(name)
}

func (b *Base) SetParamValue(name string, value any) error {
	return b.Parameters.Set(name, value)
}

func (b *Base) ParamNames() []string {
	return b.Parameters.Names()
}

// PreExecute is a no-op by default.
func (b *Base) PreExecute() error {
	return nil
}

// ApplyConfig sets every entry of config as a parameter value.
func (b *Base) ApplyConfig(config map[string]any) error {
	for name, value := range config {
		if err := b.Parameters.Set(name, value); err != nil {
			return err
		}
	}

	return nil
}
