package highlight

import (
	"github.com/recera/graphchart/pkg/render"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is the adjacency of a rendered graph. Edges count in both
// directions and self-loops are ignored.
type Graph struct {
	g     *simple.UndirectedGraph
	ids   map[render.NodeID]int64
	names []render.NodeID
}

// NewGraph indexes the nodes and edges of data. Edge endpoints missing from
// the node list are added so that lookups stay total.
func NewGraph(data *render.GraphData) *Graph {
	gr := &Graph{
		g:   simple.NewUndirectedGraph(),
		ids: make(map[render.NodeID]int64),
	}
	if data == nil {
		return gr
	}
	for _, n := range data.Nodes {
		gr.node(n.ID)
	}
	for _, e := range data.Edges {
		from, to := gr.node(e.From), gr.node(e.To)
		if from.ID() == to.ID() {
			continue
		}
		gr.g.SetEdge(gr.g.NewEdge(from, to))
	}
	return gr
}

func (gr *Graph) node(id render.NodeID) simple.Node {
	if n, ok := gr.ids[id]; ok {
		return simple.Node(n)
	}
	n := int64(len(gr.names))
	gr.ids[id] = n
	gr.names = append(gr.names, id)
	gr.g.AddNode(simple.Node(n))
	return simple.Node(n)
}

// Has reports whether id is a node of the graph
func (gr *Graph) Has(id render.NodeID) bool {
	_, ok := gr.ids[id]
	return ok
}

// Nodes returns every node id in insertion order
func (gr *Graph) Nodes() []render.NodeID {
	return append([]render.NodeID(nil), gr.names...)
}

// Neighbors implements Adjacency
func (gr *Graph) Neighbors(id render.NodeID) []render.NodeID {
	n, ok := gr.ids[id]
	if !ok {
		return nil
	}
	it := gr.g.From(n)
	out := make([]render.NodeID, 0, it.Len())
	for it.Next() {
		out = append(out, gr.names[it.Node().ID()])
	}
	return out
}
