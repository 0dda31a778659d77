package mask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

func TestExecuteZeroesOutsideWindow(t *testing.T) {
	p, err := New(map[string]any{"lower": 2.0, "upper": 15.0})
	require.NoError(t, err)

	frame, err := dataset.FromValues(dataset.Shape{2, 2}, []float64{1, 5, 10, 20})
	require.NoError(t, err)

	out, _, err := p.Execute(context.Background(), frame, plugin.ProcContext{})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 5, 10, 0}, out.(*dataset.Dataset).Values())
	assert.Equal(t, []float64{1, 5, 10, 20}, frame.Values(), "input must stay untouched")
}

func TestExecuteDefaultsPassEverything(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	frame, err := dataset.FromValues(dataset.Shape{3}, []float64{-1e12, 0, 1e12})
	require.NoError(t, err)

	out, _, err := p.Execute(context.Background(), frame, plugin.ProcContext{})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1e12, 0, 1e12}, out.(*dataset.Dataset).Values())
}

func TestCalculateResultShapePreservesInput(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	shape, err := p.CalculateResultShape(dataset.Shape{4, 4})
	require.NoError(t, err)
	assert.Equal(t, dataset.Shape{4, 4}, shape)

	_, err = p.CalculateResultShape(nil)
	require.Error(t, err)
}
