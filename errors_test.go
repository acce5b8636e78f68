package shape_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
)

func albumErrors() *shape.ValidationError {
	return &shape.ValidationError{Detail: shape.ErrorDict{
		"album_name": shape.ErrorList{{Code: shape.CodeRequired, Message: "This field is required."}},
		"tracks": shape.ErrorArray{
			nil,
			shape.ErrorDict{},
			shape.ErrorDict{"duration": shape.ErrorList{{Code: shape.CodeInvalid, Message: "Enter a whole number."}}},
		},
		"a/b": shape.ErrorList{{Code: shape.CodeBlank, Message: "This field may not be blank."}},
	}}
}

func TestErrorTreePrimitive(t *testing.T) {
	ve := albumErrors()
	assert.Equal(t, map[string]any{
		"album_name": []string{"This field is required."},
		"tracks": []any{
			map[string]any{},
			map[string]any{},
			map[string]any{"duration": []string{"Enter a whole number."}},
		},
		"a/b": []string{"This field may not be blank."},
	}, ve.Primitive())

	b, err := json.Marshal(ve)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"album_name": ["This field is required."],
		"tracks": [{}, {}, {"duration": ["Enter a whole number."]}],
		"a/b": ["This field may not be blank."]
	}`, string(b))
}

func TestErrorTreeEmpty(t *testing.T) {
	assert.True(t, shape.ErrorList{}.Empty())
	assert.True(t, shape.ErrorDict{"a": shape.ErrorList{}, "b": nil}.Empty())
	assert.True(t, shape.ErrorArray{nil, shape.ErrorDict{}}.Empty())
	assert.False(t, shape.ErrorArray{nil, shape.ErrorList{{Code: "x", Message: "x"}}}.Empty())
}

func TestIssuesFlattening(t *testing.T) {
	iss := albumErrors().Issues()
	assert.Equal(t, shape.Issues{
		{Path: "/album_name", Code: shape.CodeRequired, Message: "This field is required."},
		{Path: "/a~1b", Code: shape.CodeBlank, Message: "This field may not be blank."},
		{Path: "/tracks/2/duration", Code: shape.CodeInvalid, Message: "Enter a whole number."},
	}, iss)

	b, err := json.Marshal(iss[1:2])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"path":"/a~1b","code":"blank","message":"This field may not be blank."}]`, string(b))

	assert.Equal(t, "required at /album_name; blank at /a~1b; invalid at /tracks/2/duration", iss.Error())
	assert.Equal(t, iss.Error(), albumErrors().Error())

	root := shape.NewError(shape.CodeInvalid, "Invalid data.").Issues()
	assert.Equal(t, shape.Issues{{Path: "/", Code: shape.CodeInvalid, Message: "Invalid data."}}, root)
}

func TestIssuesErrorTruncates(t *testing.T) {
	var iss shape.Issues
	for i := 0; i < 5; i++ {
		iss = append(iss, shape.Issue{Path: fmt.Sprintf("/%d", i), Code: "c"})
	}
	assert.Equal(t, "c at /0; c at /1; c at /2; ... (total 5)", iss.Error())
	assert.Empty(t, shape.Issues(nil).Error())
}

func TestConstructors(t *testing.T) {
	fe := shape.NewFieldError("email", shape.CodeUnique, "taken")
	assert.Equal(t, map[string]any{"email": []string{"taken"}}, fe.Primitive())

	l := shape.NewErrorList(
		shape.ErrorDetail{Code: shape.CodeMaxLength, Message: "too long"},
		shape.ErrorDetail{Code: shape.CodeInvalid, Message: "bad"},
	)
	assert.Equal(t, []string{shape.CodeMaxLength, shape.CodeInvalid}, l.Detail.(shape.ErrorList).Codes())

	var nilErr *shape.ValidationError
	assert.Nil(t, nilErr.Primitive())
	assert.Nil(t, nilErr.Issues())
	assert.Equal(t, "validation error", nilErr.Error())
}

func TestAsValidationError(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", shape.NewError(shape.CodeInvalid, "bad"))
	ve, ok := shape.AsValidationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, []string{"bad"}, ve.Primitive())

	_, ok = shape.AsValidationError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = shape.AsValidationError(nil)
	assert.False(t, ok)
}

func TestConfigError(t *testing.T) {
	inner := errors.New("MatchOn requires a field")
	err := error(&shape.ConfigError{Schema: "Album", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.EqualError(t, err, `shape: invalid declaration of "Album": MatchOn requires a field`)
}
