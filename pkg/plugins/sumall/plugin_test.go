package sumall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

func TestExecuteSumsAllSamples(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	frame, err := dataset.FromValues(dataset.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	out, _, err := p.Execute(context.Background(), frame, plugin.ProcContext{})
	require.NoError(t, err)

	total := out.(*dataset.Dataset)
	assert.Equal(t, dataset.Shape{1}, total.Shape())
	assert.Equal(t, []float64{21}, total.Values())
}

func TestExecuteRejectsNonFrameInput(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	_, _, err = p.Execute(context.Background(), 3, plugin.ProcContext{})
	require.Error(t, err)
}

func TestCalculateResultShapeCollapsesToSingleValue(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	shape, err := p.CalculateResultShape(dataset.Shape{128, 128})
	require.NoError(t, err)
	assert.Equal(t, dataset.Shape{1}, shape)

	_, err = p.CalculateResultShape(nil)
	require.Error(t, err)
}
