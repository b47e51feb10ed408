package highlight

import "github.com/recera/graphchart/pkg/render"

// State of the engine
type State int

const (
	Idle State = iota
	Highlighted
)

func (s State) String() string {
	if s == Highlighted {
		return "highlighted"
	}
	return "idle"
}

// Engine tracks the highlight of one rendered graph. It is not safe for
// concurrent use; callers drive it from their event loop.
type Engine struct {
	graph    *Graph
	state    State
	selected render.NodeID
}

// NewEngine creates an idle engine over g
func NewEngine(g *Graph) *Engine {
	if g == nil {
		g = NewGraph(nil)
	}
	return &Engine{graph: g}
}

// State returns the current state
func (e *Engine) State() State {
	return e.state
}

// Selected returns the highlighted node, if any
func (e *Engine) Selected() (render.NodeID, bool) {
	return e.selected, e.state == Highlighted
}

// DoubleClick handles a double-click on id and returns the color update for
// every node. An empty id (empty canvas) or an id outside the graph clears
// the highlight.
func (e *Engine) DoubleClick(id render.NodeID) map[render.NodeID]string {
	if id == "" || !e.graph.Has(id) {
		return e.Reset()
	}
	e.state = Highlighted
	e.selected = id
	return ComputeHighlight(id, e.graph).Colors(e.graph.Nodes())
}

// Reset returns to Idle and unsets every node's color
func (e *Engine) Reset() map[render.NodeID]string {
	e.state = Idle
	e.selected = ""
	return ResetColors(e.graph.Nodes())
}
