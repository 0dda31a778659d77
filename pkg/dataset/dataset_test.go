package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 16, Shape{4, 4}.NumElements())
	assert.Equal(t, 1, Shape{1}.NumElements())
	assert.Equal(t, 0, Shape{}.NumElements())
}

func TestShapeIsKnown(t *testing.T) {
	assert.True(t, Shape{4, 4}.IsKnown())
	assert.False(t, Shape{4, UnknownDim}.IsKnown())
	assert.False(t, Shape(nil).IsKnown())
}

func TestShapeEquals(t *testing.T) {
	assert.True(t, Shape{4, 4}.Equals(Shape{4, 4}))
	assert.False(t, Shape{4, 4}.Equals(Shape{4, 5}))
	assert.False(t, Shape{4, 4}.Equals(Shape{4}))
}

func TestShapeCloneIsIndependent(t *testing.T) {
	original := Shape{4, 4}
	clone := original.Clone()
	clone[0] = 99

	assert.Equal(t, 4, original[0])
}

func TestFilled(t *testing.T) {
	d, err := Filled(Shape{2, 3}, 2.5)
	require.NoError(t, err)

	assert.Equal(t, 6, d.Len())
	assert.InDelta(t, 15.0, d.Sum(), 1e-12)
}

func TestFromValuesRejectsSizeMismatch(t *testing.T) {
	_, err := FromValues(Shape{2, 2}, []float64{1, 2, 3})
	require.Error(t, err)
}

func TestDatasetCloneIsIndependent(t *testing.T) {
	d, err := FromValues(Shape{2}, []float64{1, 2})
	require.NoError(t, err)

	clone := d.Clone()
	clone.Values()[0] = 99

	assert.InDelta(t, 1.0, d.Values()[0], 1e-12)
}
