package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadraticScaling(t *testing.T) {
	tests := []struct {
		name       string
		min, max   float64
		value, out float64
	}{
		{"min equals max", 0, 0, 5, 0},
		{"below min clamps", 0, 10, -5, 0},
		{"at max", 0, 10, 10, 1},
		{"midpoint", 0, 10, 5, 0.25},
		{"offset range", 2, 4, 3, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.out, QuadraticScaling(tt.min, tt.max, 100, tt.value), 1e-12)
		})
	}
}

func TestScaleRatio(t *testing.T) {
	assert.Equal(t, 1.0, ScaleRatio(0, 300))
	assert.Equal(t, 1.5, ScaleRatio(600, 400))
	assert.Equal(t, 2.0, ScaleRatio(3000, 100))
	assert.Equal(t, 0.5, ScaleRatio(100, 3000))
}

func TestBuildOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := BuildOptions(nil, false, nil)

		assert.Equal(t, Scaling{Min: 10, Max: 30}, opts.Nodes.Scaling)
		assert.Equal(t, 1.0, opts.Edges.Scaling.Min)
		assert.Equal(t, 5.0, opts.Edges.Scaling.Max)
		assert.Equal(t, QuadraticScalingName, opts.Edges.Scaling.CustomScalingFunction)
		assert.False(t, opts.Edges.Arrows.To.Enabled)
		assert.Nil(t, opts.Groups)
	})

	t.Run("directed with groups", func(t *testing.T) {
		opts := BuildOptions([]GroupStyle{{Name: "a", Color: "#90EE90"}}, true, &Style{NodeSizeMax: 50})

		assert.True(t, opts.Edges.Arrows.To.Enabled)
		assert.Equal(t, 50.0, opts.Nodes.Scaling.Max)
		assert.Equal(t, 10.0, opts.Nodes.Scaling.Min)
		assert.Equal(t, GroupOptions{Color: "#90EE90"}, opts.Groups["a"])
	})

	t.Run("json shape", func(t *testing.T) {
		data, err := json.Marshal(BuildOptions(nil, true, nil))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		edges := decoded["edges"].(map[string]any)
		arrows := edges["arrows"].(map[string]any)
		assert.Equal(t, map[string]any{"enabled": true}, arrows["to"])
		assert.Equal(t, false, edges["scaling"].(map[string]any)["label"])
	})
}

func TestGraphData_Decode(t *testing.T) {
	var g GraphData
	require.NoError(t, json.Unmarshal([]byte(`{
		"nodes": [{"id": 1, "label": "one", "value": 3}, {"id": "b", "label": "b", "group": "g1"}],
		"edges": [{"from": 1, "to": "b", "value": 2}],
		"groups": [{"name": "g1", "color": "#fff"}]
	}`), &g))

	assert.Equal(t, []NodeID{"1", "b"}, g.NodeIDs())
	assert.Equal(t, NodeID("1"), g.Edges[0].From)
	require.NotNil(t, g.Nodes[0].Value)
	assert.Equal(t, 3.0, *g.Nodes[0].Value)

	var bad NodeID
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &bad))
}

func TestNewFrame(t *testing.T) {
	f := NewFrame(&GraphData{}, false, nil)
	assert.NotNil(t, f.Nodes)
	assert.NotNil(t, f.Edges)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes":[]`)
}
