package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/stormlab/diffract/pkg/registry"
)

// NodeRecord is the serialized form of one tree node. Parent references are
// stored by id so the topology can be rebuilt in two passes.
type NodeRecord struct {
	NodeID      int            `json:"node_id"     validate:"gte=0"`
	ParentID    *int           `json:"parent_id"`
	PluginType  string         `json:"plugin_type" validate:"required,min=1"`
	KeepResults bool           `json:"keep_results"`
	Params      map[string]any `json:"params"`
}

// Document is the serialized form of a whole workflow tree.
type Document struct {
	Name  string       `json:"name"  validate:"required,min=1"`
	Nodes []NodeRecord `json:"nodes" validate:"required,min=1,dive"`
}

// Dump serializes the tree into a document.
func (t *Tree) Dump(name string) *Document {
	doc := &Document{Name: name}

	for _, id := range t.nodeIDs {
		node := t.nodes[id]

		record := NodeRecord{
			NodeID:      node.id,
			PluginType:  node.plugin.Type(),
			KeepResults: node.keepResults,
			Params:      exportParams(node),
		}

		if node.parent != nil {
			parentID := node.parent.id
			record.ParentID = &parentID
		}

		doc.Nodes = append(doc.Nodes, record)
	}

	return doc
}

func exportParams(node *Node) map[string]any {
	params := make(map[string]any)

	for _, name := range node.plugin.ParamNames() {
		value, err := node.plugin.ParamValue(name)
		if err != nil {
			continue
		}

		params[name] = value
	}

	return params
}

// Restore rebuilds a tree from a document, creating each node's plugin
// through the registry. Nodes are created in a first pass and wired to
// their parents in a second, so record order does not matter.
func Restore(logger *slog.Logger, reg *registry.Registry, doc *Document) (*Tree, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	tree := NewTree(logger)
	nodes := make(map[int]*Node, len(doc.Nodes))

	for _, record := range doc.Nodes {
		if _, exists := nodes[record.NodeID]; exists {
			return nil, &DuplicateNodeIDError{NodeID: record.NodeID}
		}

		p, err := reg.CreatePlugin(record.PluginType, record.Params)
		if err != nil {
			return nil, fmt.Errorf("cannot restore node %d: %w", record.NodeID, err)
		}

		node := newNode(record.NodeID, p)
		node.keepResults = record.KeepResults
		nodes[record.NodeID] = node
	}

	var root *Node

	for _, record := range doc.Nodes {
		node := nodes[record.NodeID]

		if record.ParentID == nil {
			if root != nil {
				return nil, NewUserConfigError(
					"document defines more than one root node (%d and %d)", root.id, record.NodeID,
				)
			}

			root = node

			continue
		}

		parent, ok := nodes[*record.ParentID]
		if !ok {
			return nil, NewUserConfigError(
				"node %d references unknown parent %d", record.NodeID, *record.ParentID,
			)
		}

		parent.addChild(node)
	}

	if root == nil {
		return nil, NewUserConfigError("document defines no root node")
	}

	if err := checkReachable(root, nodes); err != nil {
		return nil, err
	}

	tree.root = root
	tree.nodes = nodes

	ids := make([]int, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}

	sort.Ints(ids)
	tree.nodeIDs = ids
	tree.lastAdded = nodes[ids[len(ids)-1]]
	tree.changed = true

	return tree, nil
}

// checkReachable walks the wired topology from the root and rejects nodes
// that no path from the root reaches, e.g. a pair of records referencing
// each other as parents.
func checkReachable(root *Node, nodes map[int]*Node) error {
	reachable := make(map[int]bool, len(nodes))
	walk := []*Node{root}

	for len(walk) > 0 {
		node := walk[len(walk)-1]
		walk = walk[:len(walk)-1]

		if reachable[node.id] {
			continue
		}

		reachable[node.id] = true
		walk = append(walk, node.children...)
	}

	if len(reachable) == len(nodes) {
		return nil
	}

	orphans := make([]int, 0, len(nodes)-len(reachable))

	for id := range nodes {
		if !reachable[id] {
			orphans = append(orphans, id)
		}
	}

	sort.Ints(orphans)

	return NewUserConfigError("nodes %v are not reachable from root node %d", orphans, root.id)
}

// ParseDocument validates raw JSON against the document schema and decodes
// it.
func ParseDocument(data []byte) (*Document, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			detail += "; " + desc.String()
		}

		return nil, NewUserConfigError("workflow document is invalid%s", detail)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot decode workflow document: %w", err)
	}

	return &doc, nil
}

// EncodeDocument serializes a document to indented JSON.
func EncodeDocument(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func validateDocument(doc *Document) error {
	validate := validator.New()

	if err := validate.Struct(doc); err != nil {
		return NewUserConfigError("workflow document is invalid: %v", err)
	}

	return nil
}
