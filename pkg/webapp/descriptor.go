// Package webapp holds the configuration boundary of the graph chart: the
// parameter descriptor supplied with the webapp, the raw configuration
// received from the host window, and its validated, normalized form.
package webapp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParameterSpec declares one key of the host configuration
type ParameterSpec struct {
	Name      string `yaml:"name" json:"name" toml:"name"`
	Type      string `yaml:"type,omitempty" json:"type,omitempty" toml:"type"`
	Label     string `yaml:"label,omitempty" json:"label,omitempty" toml:"label"`
	Mandatory bool   `yaml:"mandatory,omitempty" json:"mandatory,omitempty" toml:"mandatory"`
}

// ParameterGroup is a named list of parameter specs
type ParameterGroup struct {
	Name   string
	Params []ParameterSpec
}

// Descriptor is the static webapp description: parameter groups plus the
// keys that are only forwarded when advanced parameters are enabled.
type Descriptor struct {
	TopBarParams   []ParameterSpec `yaml:"topBarParams,omitempty" json:"topBarParams,omitempty" toml:"topBarParams"`
	LeftBarParams  []ParameterSpec `yaml:"leftBarParams,omitempty" json:"leftBarParams,omitempty" toml:"leftBarParams"`
	AdvancedParams []string        `yaml:"advancedParams,omitempty" json:"advancedParams,omitempty" toml:"advancedParams"`
}

// DefaultAdvancedParams are the optional styling keys of the graph chart
var DefaultAdvancedParams = []string{
	"source_nodes_color",
	"source_nodes_size",
	"target_nodes_color",
	"target_nodes_size",
	"edges_caption",
	"edges_width",
}

// DefaultDescriptor returns the descriptor of the stock graph chart
func DefaultDescriptor() *Descriptor {
	return &Descriptor{
		TopBarParams: []ParameterSpec{
			{Name: KeySource, Type: "DATASET_COLUMN", Label: "Source", Mandatory: true},
			{Name: KeyTarget, Type: "DATASET_COLUMN", Label: "Target", Mandatory: true},
			{Name: KeyMaxNodes, Type: "INT", Label: "Max number of nodes", Mandatory: true},
		},
		LeftBarParams: []ParameterSpec{
			{Name: KeyDataset, Type: "DATASET", Label: "Dataset", Mandatory: true},
			{Name: KeyDirectedEdges, Type: "BOOLEAN", Label: "Directed edges"},
			{Name: KeyAdvanced, Type: "BOOLEAN", Label: "Advanced parameters"},
		},
		AdvancedParams: append([]string(nil), DefaultAdvancedParams...),
	}
}

// Groups returns the parameter groups in validation order
func (d *Descriptor) Groups() []ParameterGroup {
	if d == nil {
		return nil
	}
	return []ParameterGroup{
		{Name: "topBarParams", Params: d.TopBarParams},
		{Name: "leftBarParams", Params: d.LeftBarParams},
	}
}

// LoadDescriptor reads a descriptor file. TOML is chosen by extension,
// everything else is parsed as YAML (which covers JSON).
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", path, err)
	}

	var d Descriptor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &d); err != nil {
			return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
		}
	}

	if d.AdvancedParams == nil {
		d.AdvancedParams = append([]string(nil), DefaultAdvancedParams...)
	}
	for _, g := range d.Groups() {
		for i, p := range g.Params {
			if p.Name == "" {
				return nil, fmt.Errorf("descriptor %s: %s[%d] has no name", path, g.Name, i)
			}
		}
	}
	return &d, nil
}

// DescriptorStore holds the current descriptor and allows it to be swapped
// while sessions are reading it.
type DescriptorStore struct {
	current atomic.Pointer[Descriptor]
}

// NewDescriptorStore creates a store seeded with d (or the default descriptor)
func NewDescriptorStore(d *Descriptor) *DescriptorStore {
	s := &DescriptorStore{}
	if d == nil {
		d = DefaultDescriptor()
	}
	s.current.Store(d)
	return s
}

// Load returns the current descriptor
func (s *DescriptorStore) Load() *Descriptor {
	return s.current.Load()
}

// Store replaces the current descriptor
func (s *DescriptorStore) Store(d *Descriptor) {
	if d == nil {
		return
	}
	s.current.Store(d)
}
