package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/plugins/scale"
)

func testRegistry() *Registry {
	reg := NewRegistry(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	reg.RegisterPlugin(scale.NewFactory())

	return reg
}

func TestCreatePlugin(t *testing.T) {
	reg := testRegistry()

	p, err := reg.CreatePlugin("scale", map[string]any{"factor": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "scale", p.Type())

	factor, err := p.ParamValue("factor")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, factor.(float64), 1e-12)
}

func TestCreatePluginUnknownType(t *testing.T) {
	reg := testRegistry()

	_, err := reg.CreatePlugin("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestIsRegisteredAndAvailablePlugins(t *testing.T) {
	reg := testRegistry()

	assert.True(t, reg.IsRegistered("scale"))
	assert.False(t, reg.IsRegistered("nope"))
	assert.Equal(t, []string{"scale"}, reg.AvailablePlugins())
}

func TestSchema(t *testing.T) {
	reg := testRegistry()

	schema, err := reg.Schema("scale")
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])

	_, err = reg.Schema("nope")
	require.Error(t, err)
}
