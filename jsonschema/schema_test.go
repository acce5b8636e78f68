package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullable(t *testing.T) {
	s := (&Schema{Type: "string"}).Nullable()
	assert.Equal(t, []string{"string", "null"}, s.Type)
	s.Nullable()
	assert.Equal(t, []string{"string", "null"}, s.Type)

	empty := (&Schema{}).Nullable()
	assert.Nil(t, empty.Type)
}

func TestMarshal(t *testing.T) {
	b, err := Marshal(&Schema{
		SchemaURI: Draft,
		Type:      "object",
		Properties: map[string]*Schema{
			"age": {Type: "integer", Minimum: Number("0")},
		},
		Required: []string{"age"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {"age": {"type": "integer", "minimum": 0}},
		"required": ["age"]
	}`, string(b))
}
