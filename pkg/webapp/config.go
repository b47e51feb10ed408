package webapp

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Host configuration keys
const (
	KeyDataset       = "dataset"
	KeySource        = "source"
	KeyTarget        = "target"
	KeyMaxNodes      = "max_nodes"
	KeyDirectedEdges = "directed_edges"
	KeyAdvanced      = "advanced_parameters"
)

// RawConfig is the configuration object posted by the host window
type RawConfig map[string]any

// defined reports whether key holds a value other than null
func (c RawConfig) defined(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// String returns the value at key formatted as a string, or "" when undefined
func (c RawConfig) String(key string) string {
	if !c.defined(key) {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Validate checks raw against every mandatory parameter of groups and rejects
// configurations whose source and target columns are the same.
// It stops at the first failure.
func Validate(raw RawConfig, groups []ParameterGroup) error {
	for _, g := range groups {
		for _, p := range g.Params {
			if !p.Mandatory {
				continue
			}
			v, ok := raw[p.Name]
			if !ok || v == nil {
				return &MissingParameterError{Name: p.Name}
			}
			if s, isString := v.(string); isString && s == "" {
				return &MissingParameterError{Name: p.Name}
			}
		}
	}

	if sameColumn(raw) {
		return &InvalidConfigError{Reason: "source and target must differ"}
	}
	return nil
}

// sameColumn compares source and target the way Normalize will see them.
// Two undefined columns count as the same.
func sameColumn(raw RawConfig) bool {
	src, dst := raw.defined(KeySource), raw.defined(KeyTarget)
	if src != dst {
		return false
	}
	return raw.String(KeySource) == raw.String(KeyTarget)
}

// EffectiveConfig is the normalized configuration used both as the fetch
// payload and as the change-detection key.
type EffectiveConfig struct {
	Dataset       string
	Source        string
	Target        string
	MaxNodes      int
	DirectedEdges bool

	// Advanced holds the advanced keys that were enabled and defined
	Advanced map[string]any
}

// Normalize keeps the required keys of raw and, when advanced parameters
// are enabled, those advancedKeys that have a defined value.
func Normalize(raw RawConfig, advancedKeys []string) EffectiveConfig {
	eff := EffectiveConfig{
		Dataset:       raw.String(KeyDataset),
		Source:        raw.String(KeySource),
		Target:        raw.String(KeyTarget),
		MaxNodes:      toInt(raw[KeyMaxNodes]),
		DirectedEdges: truthy(raw[KeyDirectedEdges]),
	}

	if truthy(raw[KeyAdvanced]) {
		for _, key := range advancedKeys {
			if raw.defined(key) {
				if eff.Advanced == nil {
					eff.Advanced = make(map[string]any)
				}
				eff.Advanced[key] = raw[key]
			}
		}
	}
	return eff
}

// Raw converts the effective config back to host keys
func (e EffectiveConfig) Raw() RawConfig {
	raw := RawConfig{
		KeyDataset:       e.Dataset,
		KeySource:        e.Source,
		KeyTarget:        e.Target,
		KeyMaxNodes:      e.MaxNodes,
		KeyDirectedEdges: e.DirectedEdges,
		KeyAdvanced:      len(e.Advanced) > 0,
	}
	for k, v := range e.Advanced {
		raw[k] = v
	}
	return raw
}

// AdvancedKeys returns the enabled advanced keys, sorted
func (e EffectiveConfig) AdvancedKeys() []string {
	keys := make([]string, 0, len(e.Advanced))
	for k := range e.Advanced {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether e and o are structurally equal
func (e EffectiveConfig) Equal(o EffectiveConfig) bool {
	return len(e.Changed(o)) == 0
}

// Changed lists the payload keys whose values differ between e and o
func (e EffectiveConfig) Changed(o EffectiveConfig) []string {
	var changed []string
	if e.Dataset != o.Dataset {
		changed = append(changed, "dataset_name")
	}
	if e.Source != o.Source {
		changed = append(changed, KeySource)
	}
	if e.Target != o.Target {
		changed = append(changed, KeyTarget)
	}
	if e.MaxNodes != o.MaxNodes {
		changed = append(changed, KeyMaxNodes)
	}
	if e.DirectedEdges != o.DirectedEdges {
		changed = append(changed, KeyDirectedEdges)
	}

	keys := make(map[string]struct{}, len(e.Advanced)+len(o.Advanced))
	for k := range e.Advanced {
		keys[k] = struct{}{}
	}
	for k := range o.Advanced {
		keys[k] = struct{}{}
	}
	var adv []string
	for k := range keys {
		a, aok := e.Advanced[k]
		b, bok := o.Advanced[k]
		if aok != bok || !DeepEqual(a, b) {
			adv = append(adv, k)
		}
	}
	sort.Strings(adv)
	return append(changed, adv...)
}

// MarshalJSON writes the payload form: required keys and advanced keys side
// by side, in sorted key order.
func (e EffectiveConfig) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 5+len(e.Advanced))
	for k, v := range e.Advanced {
		m[k] = v
	}
	m["dataset_name"] = e.Dataset
	m[KeySource] = e.Source
	m[KeyTarget] = e.Target
	m[KeyMaxNodes] = e.MaxNodes
	m[KeyDirectedEdges] = e.DirectedEdges
	return json.Marshal(m)
}

// FilterSet maps a column name to its filter predicate. The predicates are
// opaque and forwarded to the backend unchanged.
type FilterSet map[string]any

// UnmarshalJSON accepts either an object keyed by column or a list of filter
// objects, each carrying a "column" field.
func (f *FilterSet) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	set, err := ParseFilterSet(v)
	if err != nil {
		return err
	}
	*f = set
	return nil
}

// MarshalJSON writes the predicates as a list ordered by column
func (f FilterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.List())
}

// List returns the predicates ordered by column
func (f FilterSet) List() []any {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	out := make([]any, 0, len(cols))
	for _, c := range cols {
		out = append(out, f[c])
	}
	return out
}

// Equal reports whether f and o hold structurally equal predicates
func (f FilterSet) Equal(o FilterSet) bool {
	return DeepEqual(map[string]any(f), map[string]any(o))
}

// ParseFilterSet converts decoded JSON into a FilterSet
func ParseFilterSet(v any) (FilterSet, error) {
	switch t := v.(type) {
	case nil:
		return FilterSet{}, nil
	case map[string]any:
		return FilterSet(t), nil
	case []any:
		set := make(FilterSet, len(t))
		for i, item := range t {
			key := fmt.Sprintf("#%d", i)
			if obj, ok := item.(map[string]any); ok {
				if col, ok := obj["column"].(string); ok && col != "" {
					key = col
				}
			}
			if _, dup := set[key]; dup {
				key = fmt.Sprintf("%s#%d", key, i)
			}
			set[key] = item
		}
		return set, nil
	default:
		return nil, fmt.Errorf("filters must be an object or a list, got %T", v)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && !strings.EqualFold(t, "false")
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return int(f)
		}
	}
	return 0
}
