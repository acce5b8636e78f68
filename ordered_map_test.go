package shape_test

import (
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	shape "github.com/reoring/shape"
)

func TestOrderedMap(t *testing.T) {
	m := shape.NewOrderedMap(3)
	m.Set("b", 1)
	m.Set("a", []any{shape.NewOrderedMap(0)})
	m.Set("c", nil)
	m.Set("b", 2)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":[{}],"c":null}`, string(b))

	y, err := yaml.Marshal(m)
	require.NoError(t, err)
	var back yaml.Node
	require.NoError(t, yaml.Unmarshal(y, &back))
	mapping := back.Content[0]
	require.Len(t, mapping.Content, 6)
	assert.Equal(t, []string{"b", "a", "c"}, []string{mapping.Content[0].Value, mapping.Content[2].Value, mapping.Content[4].Value})

	assert.Equal(t, map[string]any{"b": 2, "a": []any{map[string]any{}}, "c": nil}, m.ToMap())

	m.Delete("a")
	m.Delete("missing")
	assert.Equal(t, []string{"b", "c"}, m.Keys())

	var nilMap *shape.OrderedMap
	assert.Nil(t, nilMap.Keys())
	assert.Zero(t, nilMap.Len())
	_, ok = nilMap.Get("x")
	assert.False(t, ok)
}

func TestAsMapping(t *testing.T) {
	m, ok := shape.AsMapping(map[string]any{"b": 1, "a": 2})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, m.Keys())

	m, ok = shape.AsMapping(map[string]int{"n": 3})
	require.True(t, ok)
	v, _ := m.Get("n")
	assert.Equal(t, 3, v)

	m, ok = shape.AsMapping(url.Values{"tracks[0][title]": {"t"}, "name": {"A"}})
	require.True(t, ok)
	v, _ = m.Get("tracks")
	assert.Equal(t, []any{map[string]any{"title": "t"}}, v)

	om := shape.NewOrderedMap(1)
	om.Set("x", 1)
	m, ok = shape.AsMapping(om)
	require.True(t, ok)
	assert.Same(t, om, m)

	for _, v := range []any{nil, "str", []any{1}, map[int]any{1: 1}} {
		_, ok := shape.AsMapping(v)
		assert.False(t, ok, "%#v", v)
	}
}

func TestExpandForm(t *testing.T) {
	got := shape.ExpandForm(url.Values{
		"album_name":        {"A"},
		"tracks[1].title":   {"second"},
		"tracks[0][title]":  {"first"},
		"tags[]":            {"x", "y"},
		"artist.name":       {"Ann"},
		"genres":            {"rock", "jazz"},
		"tracks[0][number]": {"1"},
	})
	assert.Equal(t, map[string]any{
		"album_name": "A",
		"tracks": []any{
			map[string]any{"title": "first", "number": "1"},
			map[string]any{"title": "second"},
		},
		"tags":   []any{"x", "y"},
		"artist": map[string]any{"name": "Ann"},
		"genres": []any{"rock", "jazz"},
	}, got)
}
