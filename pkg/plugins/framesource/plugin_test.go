package framesource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

func TestCalculateResultShape(t *testing.T) {
	p, err := New(map[string]any{"size": []int{4, 6}})
	require.NoError(t, err)

	shape, err := p.CalculateResultShape(nil)
	require.NoError(t, err)
	assert.Equal(t, dataset.Shape{4, 6}, shape)

	_, err = p.CalculateResultShape(dataset.Shape{2, 2})
	require.Error(t, err, "input plugin cannot have a parent")
}

func TestCalculateResultShapeWithoutSize(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	_, err = p.CalculateResultShape(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plugin.ErrShapeUndetermined))
}

func TestExecuteFillModes(t *testing.T) {
	p, err := New(map[string]any{"size": []int{2, 2}, "fill_mode": FillIndex})
	require.NoError(t, err)

	out, pctx, err := p.Execute(context.Background(), 3, plugin.ProcContext{})
	require.NoError(t, err)

	frame, ok := out.(*dataset.Dataset)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 3, 3, 3}, frame.Values())
	assert.Equal(t, 3, pctx["scan_index"])

	ones, err := New(map[string]any{"size": []int{2, 2}})
	require.NoError(t, err)

	out, _, err = ones.Execute(context.Background(), 5, plugin.ProcContext{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, out.(*dataset.Dataset).Values())
}

func TestExecuteRejectsNonIndexInput(t *testing.T) {
	p, err := New(map[string]any{"size": []int{2, 2}})
	require.NoError(t, err)

	_, _, err = p.Execute(context.Background(), "frame", plugin.ProcContext{})
	require.Error(t, err)
}
