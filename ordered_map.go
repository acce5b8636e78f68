package shape

import (
	"bytes"
	"net/url"
	"reflect"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Mapping is a read-only, key-addressable container. Serializers accept any Mapping as input.
type Mapping interface {
	Get(key string) (any, bool)
	Keys() []string
}

// OrderedMap is a string-keyed map that remembers insertion order. Representations are
// produced as OrderedMaps so output follows field declaration order.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty map with room for n keys.
func NewOrderedMap(n int) *OrderedMap {
	return &OrderedMap{keys: make([]string, 0, n), values: make(map[string]any, n)}
}

// Set stores v under k, appending k when it is new.
func (m *OrderedMap) Set(k string, v any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value under k.
func (m *OrderedMap) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[k]
	return v, ok
}

// Delete removes k.
func (m *OrderedMap) Delete(k string) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, kk := range m.keys {
		if kk == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// ToMap converts the map, recursively, into plain map[string]any / []any values.
func (m *OrderedMap) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = Plain(m.values[k])
	}
	return out
}

// Plain strips OrderedMaps from a primitive tree.
func Plain(v any) any {
	switch t := v.(type) {
	case *OrderedMap:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON writes keys in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes keys in insertion order.
func (m *OrderedMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		kn := &yaml.Node{}
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		vn := &yaml.Node{}
		if err := vn.Encode(m.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, kn, vn)
	}
	return node, nil
}

type plainMapping map[string]any

func (p plainMapping) Get(k string) (any, bool) { v, ok := p[k]; return v, ok }

func (p plainMapping) Keys() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AsMapping views v as a Mapping. Flattened form input (url.Values, map[string][]string) is
// expanded into nested data first. Maps with string keys of any value type are accepted.
func AsMapping(v any) (Mapping, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case Mapping:
		return t, true
	case map[string]any:
		return plainMapping(t), true
	case url.Values:
		return plainMapping(ExpandForm(t)), true
	case map[string][]string:
		return plainMapping(ExpandForm(t)), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return plainMapping(out), true
	}
	return nil, false
}
