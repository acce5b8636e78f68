// Package jsonschema holds the JSON Schema document model that serializer schemas are
// projected onto.
package jsonschema

import "github.com/goccy/go-json"

// Draft is the dialect emitted at the document root.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	SchemaURI   string `json:"$schema,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Core
	Type      any    `json:"type,omitempty"` // string, or []string when nullable
	Format    string `json:"format,omitempty"`
	Default   any    `json:"default,omitempty"`
	Enum      []any  `json:"enum,omitempty"`
	ReadOnly  bool   `json:"readOnly,omitempty"`
	WriteOnly bool   `json:"writeOnly,omitempty"`

	// String
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Number
	Minimum *json.Number `json:"minimum,omitempty"`
	Maximum *json.Number `json:"maximum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	PropertyOrder        []string           `json:"-"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`

	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// Nullable widens the schema's type to admit null.
func (s *Schema) Nullable() *Schema {
	switch t := s.Type.(type) {
	case string:
		if t != "" {
			s.Type = []string{t, "null"}
		}
	case []string:
		for _, x := range t {
			if x == "null" {
				return s
			}
		}
		s.Type = append(t, "null")
	}
	return s
}

// Int returns a pointer to n, for the optional integer keywords.
func Int(n int) *int { return &n }

// Number returns a pointer to a numeric literal.
func Number(lit string) *json.Number {
	n := json.Number(lit)
	return &n
}

// Marshal renders the document with two-space indentation.
func Marshal(s *Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
