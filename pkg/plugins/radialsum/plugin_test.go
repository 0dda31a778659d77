package radialsum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

func TestCalculateResultShape(t *testing.T) {
	p, err := New(map[string]any{"bins": 16})
	require.NoError(t, err)

	shape, err := p.CalculateResultShape(dataset.Shape{32, 32})
	require.NoError(t, err)
	assert.Equal(t, dataset.Shape{16}, shape)

	_, err = p.CalculateResultShape(nil)
	require.Error(t, err)

	_, err = p.CalculateResultShape(dataset.Shape{32})
	require.Error(t, err, "only 2-dimensional frames can be binned")
}

// A 3x3 frame of ones with 2 bins: the center and the four edge pixels land
// in bin 0, the four corners in bin 1.
func TestExecuteBinsAroundCenter(t *testing.T) {
	p, err := New(map[string]any{"bins": 2})
	require.NoError(t, err)

	frame, err := dataset.Filled(dataset.Shape{3, 3}, 1)
	require.NoError(t, err)

	out, _, err := p.Execute(context.Background(), frame, plugin.ProcContext{})
	require.NoError(t, err)

	profile := out.(*dataset.Dataset)
	assert.Equal(t, dataset.Shape{2}, profile.Shape())
	assert.Equal(t, []float64{5, 4}, profile.Values())
	assert.InDelta(t, frame.Sum(), profile.Sum(), 1e-12, "binning must conserve the total")
}

func TestNewRejectsNonPositiveBins(t *testing.T) {
	for _, bins := range []int{0, -5} {
		_, err := New(map[string]any{"bins": bins})

		var cfgErr *plugin.ConfigError

		require.ErrorAs(t, err, &cfgErr, "bins=%d must be rejected at creation", bins)
	}
}

func TestCalculateResultShapeRejectsNonPositiveBins(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, p.SetParamValue("bins", 0))

	_, err = p.CalculateResultShape(dataset.Shape{4, 4})

	var cfgErr *plugin.ConfigError

	require.ErrorAs(t, err, &cfgErr)
}

func TestExecuteRejectsNonFrameInput(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	_, _, err = p.Execute(context.Background(), 7, plugin.ProcContext{})
	require.Error(t, err)

	line, err := dataset.Filled(dataset.Shape{9}, 1)
	require.NoError(t, err)

	_, _, err = p.Execute(context.Background(), line, plugin.ProcContext{})
	require.Error(t, err)
}
