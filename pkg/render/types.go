// Package render describes what the page hands to the visualization
// library: graph entities as returned by the backend and the library options.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeID identifies a node. Backends may send numeric ids; they are kept in
// their decimal text form so that edges still resolve.
type NodeID string

// UnmarshalJSON accepts strings and numbers
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("node id must be a string or a number: %s", data)
	}
	*id = NodeID(n.String())
	return nil
}

// Node represents a graph node
type Node struct {
	ID    NodeID   `json:"id"`
	Label string   `json:"label"`
	Color string   `json:"color,omitempty"`
	Size  float64  `json:"size,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Group any      `json:"group,omitempty"`
	Title string   `json:"title,omitempty"`
}

// Edge represents a graph edge between two nodes by ID
type Edge struct {
	From  NodeID   `json:"from"`
	To    NodeID   `json:"to"`
	Label string   `json:"label,omitempty"`
	Width float64  `json:"width,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Title string   `json:"title,omitempty"`
}

// GroupStyle styles every node of a color group
type GroupStyle struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Shape string `json:"shape,omitempty"`
}

// GraphData is the backend response
type GraphData struct {
	Nodes  []Node       `json:"nodes"`
	Edges  []Edge       `json:"edges"`
	Groups []GroupStyle `json:"groups,omitempty"`
}

// NodeIDs returns the ids of all nodes in response order
func (g *GraphData) NodeIDs() []NodeID {
	ids := make([]NodeID, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Frame is a complete render handoff
type Frame struct {
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Options Options `json:"options"`
}

// NewFrame pairs data with options built for it
func NewFrame(data *GraphData, directed bool, style *Style) Frame {
	nodes, edges := data.Nodes, data.Edges
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return Frame{
		Nodes:   nodes,
		Edges:   edges,
		Options: BuildOptions(data.Groups, directed, style),
	}
}
