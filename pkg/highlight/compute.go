// Package highlight computes the two-hop neighborhood emphasis applied when a
// node of a rendered graph is double-clicked.
package highlight

import "github.com/recera/graphchart/pkg/render"

// Colors applied by a plan. Unset means the node falls back to its own style.
const (
	Unset             = ""
	IntermediateColor = "rgba(150,150,150,0.75)"
	DimmedColor       = "rgba(200,200,200,0.5)"
)

// Adjacency looks up the nodes directly connected to id
type Adjacency interface {
	Neighbors(id render.NodeID) []render.NodeID
}

// AdjacencyMap is an Adjacency backed by a plain map
type AdjacencyMap map[render.NodeID][]render.NodeID

// Neighbors implements Adjacency
func (m AdjacencyMap) Neighbors(id render.NodeID) []render.NodeID {
	return m[id]
}

// Plan is the recoloring that emphasises the neighborhood of Selected
type Plan struct {
	Selected render.NodeID
	Hop1     map[render.NodeID]struct{}
	Hop2     map[render.NodeID]struct{}
}

// ComputeHighlight builds the plan for selected. Hop2 excludes the selected
// node and every hop1 node.
func ComputeHighlight(selected render.NodeID, adj Adjacency) Plan {
	p := Plan{
		Selected: selected,
		Hop1:     make(map[render.NodeID]struct{}),
		Hop2:     make(map[render.NodeID]struct{}),
	}

	for _, n := range adj.Neighbors(selected) {
		if n != selected {
			p.Hop1[n] = struct{}{}
		}
	}
	for n := range p.Hop1 {
		for _, m := range adj.Neighbors(n) {
			if m == selected {
				continue
			}
			if _, inHop1 := p.Hop1[m]; inHop1 {
				continue
			}
			p.Hop2[m] = struct{}{}
		}
	}
	return p
}

// ColorOf returns the color the plan assigns to id
func (p Plan) ColorOf(id render.NodeID) string {
	if id == p.Selected {
		return Unset
	}
	if _, ok := p.Hop1[id]; ok {
		return Unset
	}
	if _, ok := p.Hop2[id]; ok {
		return IntermediateColor
	}
	return DimmedColor
}

// Colors returns the batch update for ids
func (p Plan) Colors(ids []render.NodeID) map[render.NodeID]string {
	out := make(map[render.NodeID]string, len(ids))
	for _, id := range ids {
		out[id] = p.ColorOf(id)
	}
	return out
}

// ResetColors returns the batch update that clears every node's color
func ResetColors(ids []render.NodeID) map[render.NodeID]string {
	out := make(map[render.NodeID]string, len(ids))
	for _, id := range ids {
		out[id] = Unset
	}
	return out
}
