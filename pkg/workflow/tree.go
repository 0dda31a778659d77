// Package workflow implements the processing tree: a rooted tree of plugin
// nodes with shape propagation, staleness tracking and chain execution.
package workflow

import (
	"context"
	"log/slog"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

// Tree is one configured analysis pipeline. It is not a singleton: callers
// construct it explicitly and pass it by reference into the execution
// engine. A Tree must not be mutated while a run is in flight; topology or
// parameter edits during an active run produce undefined shape results for
// in-flight tasks.
type Tree struct {
	logger *slog.Logger

	root      *Node
	nodes     map[int]*Node
	nodeIDs   []int
	lastAdded *Node

	changed     bool
	preexecuted bool
}

func NewTree(logger *slog.Logger) *Tree {
	return &Tree{
		logger: logger.With("module", "workflow"),
		nodes:  make(map[int]*Node),
	}
}

// NodeOption configures node creation.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	parentID    int
	hasParent   bool
	nodeID      int
	hasNodeID   bool
	keepResults bool
}

// AsChildOf attaches the new node to an explicit parent instead of the most
// recently added node.
func AsChildOf(parentID int) NodeOption {
	return func(o *nodeOptions) {
		o.parentID = parentID
		o.hasParent = true
	}
}

// WithNodeID assigns an explicit node id instead of the next free one.
func WithNodeID(nodeID int) NodeOption {
	return func(o *nodeOptions) {
		o.nodeID = nodeID
		o.hasNodeID = true
	}
}

// WithKeepResults flags the node's output for retention even when the node
// is not a leaf.
func WithKeepResults() NodeOption {
	return func(o *nodeOptions) {
		o.keepResults = true
	}
}

// CreateAndAddNode wraps the plugin in a new node and inserts it into the
// tree. The first node becomes the root. Without an explicit parent, the
// node is attached as a child of the most recently added node; this is the
// documented policy that lets linear pipelines be built by sequential calls
// without parent wiring.
func (t *Tree) CreateAndAddNode(p plugin.Plugin, opts ...NodeOption) (int, error) {
	options := &nodeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	id := t.nextNodeID()
	if options.hasNodeID {
		id = options.nodeID
	}

	if _, exists := t.nodes[id]; exists {
		return 0, &DuplicateNodeIDError{NodeID: id}
	}

	node := newNode(id, p)
	node.keepResults = options.keepResults

	if t.root == nil {
		if options.hasParent {
			return 0, NewUserConfigError("cannot attach node to parent %d: the tree is empty", options.parentID)
		}

		t.root = node
	} else {
		parent := t.lastAdded

		if options.hasParent {
			var ok bool

			parent, ok = t.nodes[options.parentID]
			if !ok {
				return 0, NewUserConfigError("parent node %d does not exist", options.parentID)
			}
		}

		parent.addChild(node)
	}

	t.nodes[id] = node
	t.nodeIDs = append(t.nodeIDs, id)
	t.lastAdded = node
	t.changed = true

	t.logger.Debug("Added node to tree", "node_id", id, "plugin_type", p.Type())

	return id, nil
}

// MoveNode re-parents a node (and its subtree) under a new parent. The root
// cannot be moved and a node cannot be moved below itself; both would break
// the single-root invariant.
func (t *Tree) MoveNode(nodeID, newParentID int) error {
	node, ok := t.nodes[nodeID]
	if !ok {
		return NewUserConfigError("node %d does not exist", nodeID)
	}

	parent, ok := t.nodes[newParentID]
	if !ok {
		return NewUserConfigError("parent node %d does not exist", newParentID)
	}

	if node == t.root {
		return NewUserConfigError("the root node cannot be re-parented")
	}

	if node == parent || node.isAncestorOf(parent) {
		return NewUserConfigError("cannot move node %d below itself", nodeID)
	}

	node.detach()
	parent.addChild(node)
	t.changed = true

	return nil
}

// DeleteBranch removes a node and all its descendants from the tree.
func (t *Tree) DeleteBranch(nodeID int) error {
	node, ok := t.nodes[nodeID]
	if !ok {
		return NewUserConfigError("node %d does not exist", nodeID)
	}

	for _, id := range node.recursiveIDs() {
		delete(t.nodes, id)

		for i, known := range t.nodeIDs {
			if known == id {
				t.nodeIDs = append(t.nodeIDs[:i], t.nodeIDs[i+1:]...)

				break
			}
		}
	}

	node.detach()

	if node == t.root {
		t.root = nil
	}

	if t.lastAdded != nil {
		if _, alive := t.nodes[t.lastAdded.id]; !alive {
			t.lastAdded = nil

			if len(t.nodeIDs) > 0 {
				t.lastAdded = t.nodes[t.nodeIDs[len(t.nodeIDs)-1]]
			}
		}
	}

	t.changed = true

	return nil
}

// SetKeepResults changes the node's result retention flag.
func (t *Tree) SetKeepResults(nodeID int, keep bool) error {
	node, ok := t.nodes[nodeID]
	if !ok {
		return NewUserConfigError("node %d does not exist", nodeID)
	}

	node.keepResults = keep
	t.changed = true

	return nil
}

// SetPluginParam updates one plugin parameter and flags the tree as
// changed. Mutating plugin parameters without going through this method
// leaves the staleness flag behind reality.
func (t *Tree) SetPluginParam(nodeID int, name string, value any) error {
	node, ok := t.nodes[nodeID]
	if !ok {
		return NewUserConfigError("node %d does not exist", nodeID)
	}

	if err := node.plugin.SetParamValue(name, value); err != nil {
		return err
	}

	t.changed = true

	return nil
}

// HasChanged reports whether topology or parameters changed since the last
// PrepareExecution.
func (t *Tree) HasChanged() bool {
	return t.changed
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.root
}

// Node returns the node registered under the id.
func (t *Tree) Node(nodeID int) (*Node, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, NewUserConfigError("node %d does not exist", nodeID)
	}

	return node, nil
}

// NodeIDs returns all node ids in insertion order.
func (t *Tree) NodeIDs() []int {
	ids := make([]int, len(t.nodeIDs))
	copy(ids, t.nodeIDs)

	return ids
}

// Clear removes all nodes and resets the tree to its empty state.
func (t *Tree) Clear() {
	t.root = nil
	t.nodes = make(map[int]*Node)
	t.nodeIDs = nil
	t.lastAdded = nil
	t.changed = false
	t.preexecuted = false
}

// PrepareExecution recomputes every node's result shape top-down, runs the
// plugins' one-time setup hooks and clears the staleness flag. It is
// idempotent: calling it twice with no intervening change yields identical
// shapes.
func (t *Tree) PrepareExecution() error {
	if t.root == nil {
		return NewUserConfigError("the workflow tree has no nodes")
	}

	if err := t.root.propagateShapes(nil); err != nil {
		return err
	}

	if err := t.root.prepareExecution(); err != nil {
		return err
	}

	t.preexecuted = true
	t.changed = false

	return nil
}

// ExecuteProcess walks the tree once for the given task argument, feeding
// each node's output to its children. A stale tree is re-prepared first, so
// callers need not remember to call PrepareExecution themselves; doing so
// up front is still recommended for determinism in concurrent runs.
func (t *Tree) ExecuteProcess(ctx context.Context, task any, pctx plugin.ProcContext) error {
	if !t.preexecuted || t.changed {
		if err := t.PrepareExecution(); err != nil {
			return err
		}
	}

	if t.root == nil {
		return NewUserConfigError("the workflow tree has no nodes")
	}

	if pctx == nil {
		pctx = plugin.ProcContext{}
	}

	t.root.clearResults()

	return t.root.executeChain(ctx, task, pctx)
}

// ExecuteProcessAndGetResults runs ExecuteProcess and returns the retained
// outputs keyed by node id.
func (t *Tree) ExecuteProcessAndGetResults(ctx context.Context, task any, pctx plugin.ProcContext) (map[int]any, error) {
	if err := t.ExecuteProcess(ctx, task, pctx); err != nil {
		return nil, err
	}

	results := make(map[int]any)

	for _, node := range t.NodesWithResults() {
		if node.result != nil {
			results[node.id] = node.result
		}
	}

	return results, nil
}

// ExecuteSinglePlugin executes one node's plugin in isolation, after a
// fresh shape propagation. Intended for testing a single processing step.
func (t *Tree) ExecuteSinglePlugin(ctx context.Context, nodeID int, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, nil, NewUserConfigError("node %d does not exist", nodeID)
	}

	if err := t.root.propagateShapes(nil); err != nil {
		return nil, nil, err
	}

	if err := node.plugin.PreExecute(); err != nil {
		return nil, nil, err
	}

	if pctx == nil {
		pctx = plugin.ProcContext{}
	}

	return node.executePlugin(ctx, data, pctx)
}

// NodesWithResults returns all leaf nodes plus all nodes flagged to keep
// their results.
func (t *Tree) NodesWithResults() []*Node {
	var nodes []*Node

	for _, id := range t.nodeIDs {
		node := t.nodes[id]
		if node.IsLeaf() || node.keepResults {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// AllResultShapes returns the shapes of all result-bearing nodes. It fails
// if the tree is empty or any shape remains unknown after propagation:
// downstream result allocation cannot proceed without concrete shapes.
func (t *Tree) AllResultShapes(forceUpdate bool) (map[int]dataset.Shape, error) {
	if t.root == nil {
		return nil, NewUserConfigError("the workflow tree has no nodes")
	}

	resultNodes := t.NodesWithResults()

	stale := t.changed || forceUpdate

	for _, node := range resultNodes {
		if node.resultShape == nil {
			stale = true
		}
	}

	if stale {
		if err := t.root.propagateShapes(nil); err != nil {
			return nil, err
		}

		t.changed = false
	}

	shapes := make(map[int]dataset.Shape, len(resultNodes))

	for _, node := range resultNodes {
		if !node.resultShape.IsKnown() {
			return nil, NewUserConfigError(
				"cannot determine the shape of the output for node %d (plugin type %q)",
				node.id, node.plugin.Type(),
			)
		}

		shapes[node.id] = node.resultShape.Clone()
	}

	return shapes, nil
}

// ConsistentNodes partitions all node ids by input/output dimensionality
// consistency with their ancestors.
func (t *Tree) ConsistentNodes() (consistent, inconsistent []int) {
	for _, id := range t.nodeIDs {
		if t.nodes[id].ConsistencyCheck() {
			consistent = append(consistent, id)
		} else {
			inconsistent = append(inconsistent, id)
		}
	}

	return consistent, inconsistent
}

func (t *Tree) nextNodeID() int {
	next := 0

	for _, id := range t.nodeIDs {
		if id >= next {
			next = id + 1
		}
	}

	return next
}
