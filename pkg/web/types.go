// Package web provides the HTTP API for workflow management and scan run
// control.
package web

import (
	"github.com/stormlab/diffract/pkg/scan"
)

// CreateRunRequest is the request body for starting a scan run.
type CreateRunRequest struct {
	Workflow string       `json:"workflow"  validate:"required,min=1"`
	Scan     scan.Context `json:"scan"      validate:"required"`
	NWorkers int          `json:"n_workers" validate:"omitempty,gte=1"`
}

// CreateRunResponse is returned after a run was accepted.
type CreateRunResponse struct {
	ID string `json:"id"`
}

// PluginInfo describes one registered plugin type.
type PluginInfo struct {
	ID     string         `json:"id"`
	Schema map[string]any `json:"schema,omitempty"`
}

// NodeResultsResponse carries one node's accumulated results.
type NodeResultsResponse struct {
	NodeID     int       `json:"node_id"`
	PluginType string    `json:"plugin_type"`
	Shape      []int     `json:"shape"`
	FullShape  []int     `json:"full_shape"`
	Values     []float64 `json:"values"`
}
