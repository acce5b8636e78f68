package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
)

type Node struct {
	Name   string
	Parent *Node
}

func nodeSchema(depth int) *dsl.Schema {
	var s *dsl.Schema
	s = dsl.Serializer("Node").
		Field("name", dsl.Char()).
		Field("parent", dsl.Lazy(func() dsl.Field { return s }, dsl.AllowNull(), dsl.Required(false))).
		Depth(depth).
		MustBuild()
	return s
}

func chain(names ...string) *Node {
	var head *Node
	for i := len(names) - 1; i >= 0; i-- {
		head = &Node{Name: names[i], Parent: head}
	}
	return head
}

func TestRenderCycleIsShallow(t *testing.T) {
	a := &Node{Name: "a"}
	a.Parent = a
	data, err := nodeSchema(0).New(dsl.WithInstance(a)).Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a", "parent": map[string]any{"name": "a"}}, data.ToMap())
}

func TestRenderDepth(t *testing.T) {
	want := map[string]any{
		"name": "a",
		"parent": map[string]any{
			"name":   "b",
			"parent": map[string]any{"name": "c"},
		},
	}

	data, err := nodeSchema(1).New(dsl.WithInstance(chain("a", "b", "c", "d"))).Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, data.ToMap())

	st := shape.DefaultSettings()
	st.MaxDepth = 1
	ctx := shape.WithSettings(context.Background(), st)
	data, err = nodeSchema(0).New(dsl.WithInstance(chain("a", "b", "c", "d"))).Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, data.ToMap())

	data, err = nodeSchema(0).New(dsl.WithInstance(chain("a", "b"))).Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":   "a",
		"parent": map[string]any{"name": "b", "parent": nil},
	}, data.ToMap())
}

func TestSelfReferenceValidates(t *testing.T) {
	got, err := nodeSchema(0).New(dsl.WithData(map[string]any{
		"name":   "a",
		"parent": map[string]any{"name": "b", "parent": map[string]any{"name": "c"}},
	})).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name": "a",
		"parent": map[string]any{
			"name":   "b",
			"parent": map[string]any{"name": "c"},
		},
	}, got)
}

func TestRenderSettings(t *testing.T) {
	st := shape.DefaultSettings()
	st.CoerceDecimalToString = false
	st.DateFormat = "02/01/2006"
	ctx := shape.WithSettings(context.Background(), st)

	schema := dsl.Serializer("T").
		Field("price", dsl.Decimal(6, 2)).
		Field("day", dsl.Date()).
		MustBuild()
	got, err := schema.New(dsl.WithData(map[string]any{"price": "3.5", "day": "2024-05-01"})).Validate(ctx)
	require.NoError(t, err)

	data, err := schema.New(dsl.WithInstance(got)).Data(ctx)
	require.NoError(t, err)
	b, err := data.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 3.50, "day": "01/05/2024"}`, string(b))
}
