package render

import "math"

// QuadraticScalingName is the name under which the page registers
// QuadraticScaling as the edge scaling function
const QuadraticScalingName = "quadratic"

// Scaling bounds
type Scaling struct {
	Min                   float64 `json:"min"`
	Max                   float64 `json:"max"`
	Label                 *bool   `json:"label,omitempty"`
	CustomScalingFunction string  `json:"customScalingFunction,omitempty"`
}

// Font of node labels
type Font struct {
	Size int    `json:"size"`
	Face string `json:"face"`
}

// NodeOptions are the library's node options
type NodeOptions struct {
	Shape   string  `json:"shape"`
	Scaling Scaling `json:"scaling"`
	Font    Font    `json:"font"`
}

// ArrowOptions toggles the arrow head at the target end
type ArrowOptions struct {
	To struct {
		Enabled bool `json:"enabled"`
	} `json:"to"`
}

// EdgeOptions are the library's edge options
type EdgeOptions struct {
	Scaling Scaling           `json:"scaling"`
	Arrows  ArrowOptions      `json:"arrows"`
	Color   map[string]any    `json:"color"`
	Smooth  map[string]string `json:"smooth"`
}

// InteractionOptions are the library's interaction options
type InteractionOptions struct {
	HideEdgesOnDrag     bool            `json:"hideEdgesOnDrag"`
	TooltipDelay        int             `json:"tooltipDelay"`
	HoverConnectedEdges bool            `json:"hoverConnectedEdges"`
	NavigationButtons   bool            `json:"navigationButtons"`
	Keyboard            map[string]bool `json:"keyboard"`
}

// ForceAtlas2 holds the forceAtlas2Based solver parameters
type ForceAtlas2 struct {
	GravitationalConstant float64 `json:"gravitationalConstant"`
	CentralGravity        float64 `json:"centralGravity"`
	SpringLength          float64 `json:"springLength"`
	SpringConstant        float64 `json:"springConstant"`
}

// PhysicsOptions are handed through to the library's physics engine
type PhysicsOptions struct {
	ForceAtlas2Based ForceAtlas2    `json:"forceAtlas2Based"`
	MaxVelocity      float64        `json:"maxVelocity"`
	Solver           string         `json:"solver"`
	Timestep         float64        `json:"timestep"`
	Stabilization    map[string]int `json:"stabilization"`
}

// GroupOptions styles a node group
type GroupOptions struct {
	Color string `json:"color,omitempty"`
	Shape string `json:"shape,omitempty"`
}

// Options is the complete option object of the visualization library
type Options struct {
	Nodes       NodeOptions             `json:"nodes"`
	Edges       EdgeOptions             `json:"edges"`
	Interaction InteractionOptions      `json:"interaction"`
	Physics     PhysicsOptions          `json:"physics"`
	Groups      map[string]GroupOptions `json:"groups,omitempty"`
}

// Style configures the visual bounds of a render
type Style struct {
	// Node size range
	NodeSizeMin float64 // default 10
	NodeSizeMax float64 // default 30

	// Edge width range
	EdgeWidthMin float64 // default 1
	EdgeWidthMax float64 // default 5

	FontSize int    // default 12
	FontFace string // default "Tahoma"
	Shape    string // default "dot"
}

func (s *Style) withDefaults() Style {
	d := Style{
		NodeSizeMin:  10,
		NodeSizeMax:  30,
		EdgeWidthMin: 1,
		EdgeWidthMax: 5,
		FontSize:     12,
		FontFace:     "Tahoma",
		Shape:        "dot",
	}
	if s == nil {
		return d
	}
	if s.NodeSizeMin != 0 {
		d.NodeSizeMin = s.NodeSizeMin
	}
	if s.NodeSizeMax != 0 {
		d.NodeSizeMax = s.NodeSizeMax
	}
	if s.EdgeWidthMin != 0 {
		d.EdgeWidthMin = s.EdgeWidthMin
	}
	if s.EdgeWidthMax != 0 {
		d.EdgeWidthMax = s.EdgeWidthMax
	}
	if s.FontSize != 0 {
		d.FontSize = s.FontSize
	}
	if s.FontFace != "" {
		d.FontFace = s.FontFace
	}
	if s.Shape != "" {
		d.Shape = s.Shape
	}
	return d
}

// BuildOptions assembles the library options for a graph. Arrows follow
// directed; groups become per-group node styles.
func BuildOptions(groups []GroupStyle, directed bool, style *Style) Options {
	st := style.withDefaults()
	noLabel := false

	opts := Options{
		Nodes: NodeOptions{
			Shape:   st.Shape,
			Scaling: Scaling{Min: st.NodeSizeMin, Max: st.NodeSizeMax},
			Font:    Font{Size: st.FontSize, Face: st.FontFace},
		},
		Edges: EdgeOptions{
			Scaling: Scaling{
				Min:                   st.EdgeWidthMin,
				Max:                   st.EdgeWidthMax,
				Label:                 &noLabel,
				CustomScalingFunction: QuadraticScalingName,
			},
			Color:  map[string]any{"inherit": true},
			Smooth: map[string]string{"type": "continuous"},
		},
		Interaction: InteractionOptions{
			HideEdgesOnDrag:     true,
			TooltipDelay:        200,
			HoverConnectedEdges: true,
			NavigationButtons:   true,
			Keyboard:            map[string]bool{"enabled": true},
		},
		Physics: PhysicsOptions{
			ForceAtlas2Based: ForceAtlas2{
				GravitationalConstant: -26,
				CentralGravity:        0.005,
				SpringLength:          230,
				SpringConstant:        0.18,
			},
			MaxVelocity:   50,
			Solver:        "forceAtlas2Based",
			Timestep:      0.35,
			Stabilization: map[string]int{"iterations": 150},
		},
	}
	opts.Edges.Arrows.To.Enabled = directed

	if len(groups) > 0 {
		opts.Groups = make(map[string]GroupOptions, len(groups))
		for _, g := range groups {
			opts.Groups[g.Name] = GroupOptions{Color: g.Color, Shape: g.Shape}
		}
	}
	return opts
}

// QuadraticScaling maps value onto [0,1] for the library's scaling hook.
// total is unused but part of the hook's signature.
func QuadraticScaling(min, max, total, value float64) float64 {
	if max == min {
		return 0
	}
	scaled := math.Max(0, (value-min)/(max-min))
	return scaled * scaled
}

// ScaleRatio is the viewport aspect ratio sent to the backend, clamped to
// [0.5, 2]. Unknown sizes give 1.
func ScaleRatio(width, height float64) float64 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return math.Min(2, math.Max(0.5, width/height))
}
