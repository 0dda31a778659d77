package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/scan"
)

func testScan(t *testing.T) *scan.Context {
	t.Helper()

	c, err := scan.New("grid",
		scan.Dimension{Label: "y", N: 2},
		scan.Dimension{Label: "x", N: 2},
	)
	require.NoError(t, err)

	return c
}

func preparedStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore()
	err := store.Prepare(testScan(t),
		map[int]dataset.Shape{2: {1}},
		map[int]string{2: "sumall"},
	)
	require.NoError(t, err)

	return store
}

func TestPrepareRejectsUnknownShapes(t *testing.T) {
	store := NewStore()

	err := store.Prepare(testScan(t),
		map[int]dataset.Shape{0: {4, dataset.UnknownDim}},
		map[int]string{0: "framesource"},
	)
	require.Error(t, err)
}

func TestStoreResultsByTaskIndex(t *testing.T) {
	store := preparedStore(t)

	for _, index := range []int{3, 0, 2, 1} {
		value, err := dataset.FromValues(dataset.Shape{1}, []float64{float64(index * 10)})
		require.NoError(t, err)

		require.NoError(t, store.StoreResults(index, map[int]any{2: value}))
	}

	node, err := store.Node(2)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 10, 20, 30}, node.Values())
	assert.Equal(t, dataset.Shape{2, 2, 1}, node.FullShape(store.ScanContext().Shape()))
	assert.True(t, store.Complete())
}

func TestStoreResultsRejectsBadInput(t *testing.T) {
	store := preparedStore(t)

	value, err := dataset.FromValues(dataset.Shape{1}, []float64{1})
	require.NoError(t, err)

	require.Error(t, store.StoreResults(4, map[int]any{2: value}), "index out of range")
	require.Error(t, store.StoreResults(0, map[int]any{9: value}), "unknown node")
	require.Error(t, store.StoreResults(0, map[int]any{2: "not a dataset"}))

	wrong, err := dataset.FromValues(dataset.Shape{2}, []float64{1, 2})
	require.NoError(t, err)
	require.Error(t, store.StoreResults(0, map[int]any{2: wrong}), "shape mismatch")
}

func TestPointValues(t *testing.T) {
	store := preparedStore(t)

	value, err := dataset.FromValues(dataset.Shape{1}, []float64{7})
	require.NoError(t, err)
	require.NoError(t, store.StoreResults(1, map[int]any{2: value}))

	node, err := store.Node(2)
	require.NoError(t, err)

	point, err := node.PointValues(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, point)

	_, err = node.PointValues(0)
	require.Error(t, err, "unstored point")

	assert.False(t, store.Complete())
}

func TestUnpreparedStoreRejectsWrites(t *testing.T) {
	store := NewStore()

	require.Error(t, store.StoreResults(0, nil))
}
