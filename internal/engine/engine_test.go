package engine

import (
	"errors"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAny(t *testing.T) {
	v, err := DecodeAny(NewJSONBytes([]byte(`{"a":[1,"x",{"b":null}],"c":true}`)))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": []any{j.Number("1"), "x", map[string]any{"b": nil}},
		"c": true,
	}, v)

	_, err = DecodeAny(NewJSONBytes([]byte(`{} {}`)))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = DecodeAny(NewJSONBytes(nil))
	assert.Error(t, err)
}

func TestEnforcementPaths(t *testing.T) {
	var seen []SimpleIssue
	src := WrapWithEnforcement(NewJSONBytes([]byte(`[{"k":1,"k":2},{"a/b":{"x":1,"x":1}}]`)), EnforceOptions{
		OnDuplicate: DupWarn,
		IssueSink:   func(si SimpleIssue) { seen = append(seen, si) },
	})
	_, err := DecodeAny(src)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "/0/k", seen[0].Path)
	assert.Equal(t, "/1/a~1b/x", seen[1].Path)
	assert.Equal(t, "duplicate_key", seen[0].Code)

	src = WrapWithEnforcement(NewJSONBytes([]byte(`{"k":1,"k":2}`)), EnforceOptions{OnDuplicate: DupError})
	_, err = DecodeAny(src)
	var ie IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "/k", ie.Path)

	src = WrapWithEnforcement(NewJSONBytes([]byte(`[[[]]]`)), EnforceOptions{MaxDepth: 2})
	_, err = DecodeAny(src)
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "/0/0", ie.Path)
	assert.Equal(t, "max depth exceeded", ie.Message)
}

func TestSplitFormKey(t *testing.T) {
	cases := map[string][]string{
		"name":             {"name"},
		"tracks[0][title]": {"tracks", "0", "title"},
		"tracks[0].title":  {"tracks", "0", "title"},
		"artist.name":      {"artist", "name"},
		"tags[]":           {"tags", ""},
		"broken[x":         {"broken", "[x"},
	}
	for key, want := range cases {
		assert.Equal(t, want, SplitFormKey(key), key)
	}
}

func TestExpandFormMixesIndexedAndAppended(t *testing.T) {
	got := ExpandForm(map[string][]string{
		"items[1]": {"b"},
		"items[0]": {"a"},
		"empty":    {},
	})
	assert.Equal(t, map[string]any{"items": []any{"a", "b"}, "empty": ""}, got)
}
