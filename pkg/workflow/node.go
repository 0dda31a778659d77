package workflow

import (
	"context"
	"fmt"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/plugin"
)

// Node wraps one plugin inside a workflow tree. Node identity never changes
// after creation; topology is owned by the tree.
type Node struct {
	id          int
	plugin      plugin.Plugin
	parent      *Node
	children    []*Node
	keepResults bool

	resultShape dataset.Shape
	result      any
	resultCtx   plugin.ProcContext
}

func newNode(id int, p plugin.Plugin) *Node {
	return &Node{id: id, plugin: p}
}

func (n *Node) ID() int {
	return n.id
}

func (n *Node) Plugin() plugin.Plugin {
	return n.plugin
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) IsRoot() bool {
	return n.parent == nil
}

func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// KeepResults reports whether the node's output is retained past being
// forwarded to its children.
func (n *Node) KeepResults() bool {
	return n.keepResults
}

// ResultShape returns the node's output shape, or nil if shape propagation
// has not visited the node since the last change.
func (n *Node) ResultShape() dataset.Shape {
	return n.resultShape
}

// Result returns the retained output of the last ExecuteProcess call, or nil
// for nodes that do not retain results.
func (n *Node) Result() any {
	return n.result
}

// ResultContext returns the processing context retained alongside the
// result.
func (n *Node) ResultContext() plugin.ProcContext {
	return n.resultCtx
}

func (n *Node) addChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}

	siblings := n.parent.children
	for i, sibling := range siblings {
		if sibling == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)

			break
		}
	}

	n.parent = nil
}

// isAncestorOf reports whether n lies on the path from the tree root to
// other (excluding other itself).
func (n *Node) isAncestorOf(other *Node) bool {
	for cursor := other.parent; cursor != nil; cursor = cursor.parent {
		if cursor == n {
			return true
		}
	}

	return false
}

// ConsistencyCheck verifies that the parent's output dimensionality matches
// this node's input dimensionality, recursively up to the root.
func (n *Node) ConsistencyCheck() bool {
	if n.parent == nil {
		return true
	}

	parentOut := n.parent.plugin.OutputDataDim()
	pluginIn := n.plugin.InputDataDim()

	return n.parent.ConsistencyCheck() &&
		(parentOut == pluginIn || parentOut == plugin.AnyDim || pluginIn == plugin.AnyDim)
}

// propagateShapes recomputes the node's result shape from the upstream shape
// and pushes the fresh shape to all children.
func (n *Node) propagateShapes(upstream dataset.Shape) error {
	shape, err := n.plugin.CalculateResultShape(upstream)
	if err != nil {
		return &ShapeUndeterminedError{NodeID: n.id, PluginType: n.plugin.Type(), Err: err}
	}

	n.resultShape = shape

	for _, child := range n.children {
		if err := child.propagateShapes(shape); err != nil {
			return err
		}
	}

	return nil
}

// prepareExecution runs the plugins' one-time setup hooks root to leaves.
func (n *Node) prepareExecution() error {
	if err := n.plugin.PreExecute(); err != nil {
		return fmt.Errorf("pre-execute of node %d failed: %w", n.id, err)
	}

	for _, child := range n.children {
		if err := child.prepareExecution(); err != nil {
			return err
		}
	}

	return nil
}

// executePlugin invokes the plugin's compute step once.
func (n *Node) executePlugin(ctx context.Context, data any, pctx plugin.ProcContext) (any, plugin.ProcContext, error) {
	out, outCtx, err := n.plugin.Execute(ctx, data, pctx)
	if err != nil {
		return nil, nil, fmt.Errorf("node %d (%s) failed: %w", n.id, n.plugin.Type(), err)
	}

	return out, outCtx, nil
}

// executeChain executes the plugin and feeds the output to every child.
// Outputs are retained only at leaves and keep-results nodes; all other
// intermediate outputs are discarded after being forwarded.
func (n *Node) executeChain(ctx context.Context, data any, pctx plugin.ProcContext) error {
	out, outCtx, err := n.executePlugin(ctx, data, pctx)
	if err != nil {
		return err
	}

	if n.IsLeaf() || n.keepResults {
		n.result = out
		n.resultCtx = outCtx
	}

	for _, child := range n.children {
		if err := child.executeChain(ctx, out, pctx.Merged(outCtx)); err != nil {
			return err
		}
	}

	return nil
}

func (n *Node) clearResults() {
	n.result = nil
	n.resultCtx = nil

	for _, child := range n.children {
		child.clearResults()
	}
}

func (n *Node) recursiveIDs() []int {
	ids := []int{n.id}

	for _, child := range n.children {
		ids = append(ids, child.recursiveIDs()...)
	}

	return ids
}
