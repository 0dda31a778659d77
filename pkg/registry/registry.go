// Package registry provides the explicit registration mechanism for plugin
// factories. Discovery of plugin packages is the caller's concern; the
// registry only maps type names to factories.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/stormlab/diffract/pkg/plugin"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]plugin.Factory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]plugin.Factory),
	}
}

func (r *Registry) RegisterPlugin(factory plugin.Factory) {
	r.factories[factory.ID()] = factory
	r.logger.Debug("Registered plugin factory", "plugin_type", factory.ID())
}

func (r *Registry) CreatePlugin(pluginType string, config map[string]any) (plugin.Plugin, error) {
	factory, ok := r.factories[pluginType]
	if !ok {
		return nil, fmt.Errorf("plugin type '%s' not registered", pluginType)
	}

	return factory.Create(config)
}

func (r *Registry) IsRegistered(pluginType string) bool {
	_, ok := r.factories[pluginType]

	return ok
}

// AvailablePlugins returns the registered plugin type names in sorted order.
func (r *Registry) AvailablePlugins() []string {
	types := make([]string, 0, len(r.factories))

	for pluginType := range r.factories {
		types = append(types, pluginType)
	}

	sort.Strings(types)

	return types
}

// Schema returns the configuration schema of a registered plugin type.
func (r *Registry) Schema(pluginType string) (map[string]any, error) {
	factory, ok := r.factories[pluginType]
	if !ok {
		return nil, fmt.Errorf("plugin type '%s' not registered", pluginType)
	}

	return factory.Schema(), nil
}
