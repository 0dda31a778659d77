// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/stormlab/diffract/pkg/plugins/framesource"
	"github.com/stormlab/diffract/pkg/plugins/mask"
	"github.com/stormlab/diffract/pkg/plugins/radialsum"
	"github.com/stormlab/diffract/pkg/plugins/scale"
	"github.com/stormlab/diffract/pkg/plugins/sumall"
	"github.com/stormlab/diffract/pkg/registry"
)

func registerNativePlugins(reg *registry.Registry) {
	reg.RegisterPlugin(framesource.NewFactory())
	reg.RegisterPlugin(scale.NewFactory())
	reg.RegisterPlugin(mask.NewFactory())
	reg.RegisterPlugin(radialsum.NewFactory())
	reg.RegisterPlugin(sumall.NewFactory())
}

// NewRegistry creates a registry with all native processing plugins
// registered.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativePlugins(reg)

	return reg
}
