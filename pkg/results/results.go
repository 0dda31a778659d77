// Package results collects per-node processing results of a full scan into
// pre-allocated arrays. Each stored array has the scan shape prepended to
// the node's result shape, and workers' results are written by task index
// so arrival order does not matter.
package results

import (
	"fmt"
	"sync"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/scan"
)

// NodeResults holds the accumulated results of one workflow node over all
// scan points.
type NodeResults struct {
	NodeID     int
	PluginType string
	// Shape is the per-point result shape, without the scan dimensions.
	Shape dataset.Shape

	values []float64
	stored []bool
}

// FullShape returns the scan shape prepended to the node result shape.
func (n *NodeResults) FullShape(scanShape dataset.Shape) dataset.Shape {
	full := make(dataset.Shape, 0, len(scanShape)+len(n.Shape))
	full = append(full, scanShape...)
	full = append(full, n.Shape...)

	return full
}

// PointValues returns the result values stored for one scan point, or an
// error if the point has not been stored yet.
func (n *NodeResults) PointValues(index int) ([]float64, error) {
	size := n.Shape.NumElements()

	if index < 0 || (index+1)*size > len(n.values) {
		return nil, fmt.Errorf("scan point index %d out of range for node %d", index, n.NodeID)
	}

	if !n.stored[index] {
		return nil, fmt.Errorf("no result stored for scan point %d on node %d", index, n.NodeID)
	}

	return n.values[index*size : (index+1)*size], nil
}

// Values returns the full flat value array, scan dimensions first.
func (n *NodeResults) Values() []float64 {
	return n.values
}

// Store is the accumulator for a whole run. Prepare allocates one array per
// result-bearing node; StoreResults may then be called concurrently.
type Store struct {
	mu    sync.RWMutex
	scan  *scan.Context
	nodes map[int]*NodeResults
}

func NewStore() *Store {
	return &Store{nodes: make(map[int]*NodeResults)}
}

// Prepare allocates the result arrays for the given node shapes. All shapes
// must be fully known; allocation sizes come from the scan geometry.
func (s *Store) Prepare(scanCtx *scan.Context, shapes map[int]dataset.Shape, pluginTypes map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nPoints := scanCtx.NPoints()
	nodes := make(map[int]*NodeResults, len(shapes))

	for nodeID, shape := range shapes {
		if !shape.IsKnown() {
			return fmt.Errorf("cannot allocate results for node %d: shape %s is not fully known", nodeID, shape)
		}

		nodes[nodeID] = &NodeResults{
			NodeID:     nodeID,
			PluginType: pluginTypes[nodeID],
			Shape:      shape.Clone(),
			values:     make([]float64, nPoints*shape.NumElements()),
			stored:     make([]bool, nPoints),
		}
	}

	s.scan = scanCtx
	s.nodes = nodes

	return nil
}

// StoreResults writes the results of one scan point into the arrays. The
// map is keyed by node id; values must be datasets matching the prepared
// shapes.
func (s *Store) StoreResults(taskIndex int, nodeResults map[int]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scan == nil {
		return fmt.Errorf("result store is not prepared")
	}

	if taskIndex < 0 || taskIndex >= s.scan.NPoints() {
		return fmt.Errorf("task index %d out of range [0, %d)", taskIndex, s.scan.NPoints())
	}

	for nodeID, value := range nodeResults {
		node, ok := s.nodes[nodeID]
		if !ok {
			return fmt.Errorf("no result array allocated for node %d", nodeID)
		}

		data, ok := value.(*dataset.Dataset)
		if !ok {
			return fmt.Errorf("result for node %d is not a dataset", nodeID)
		}

		if !data.Shape().Equals(node.Shape) {
			return fmt.Errorf(
				"result shape %s for node %d does not match allocated shape %s",
				data.Shape(), nodeID, node.Shape,
			)
		}

		size := node.Shape.NumElements()
		copy(node.values[taskIndex*size:(taskIndex+1)*size], data.Values())
		node.stored[taskIndex] = true
	}

	return nil
}

// Node returns the accumulated results for one node.
func (s *Store) Node(nodeID int) (*NodeResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("no results for node %d", nodeID)
	}

	return node, nil
}

// NodeIDs returns the ids of all result-bearing nodes.
func (s *Store) NodeIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}

	return ids
}

// ScanContext returns the scan geometry the store was prepared with.
func (s *Store) ScanContext() *scan.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scan
}

// Complete reports whether every scan point has been stored for every
// node.
func (s *Store) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, node := range s.nodes {
		for _, stored := range node.stored {
			if !stored {
				return false
			}
		}
	}

	return len(s.nodes) > 0
}
