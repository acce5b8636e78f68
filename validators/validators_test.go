package validators_test

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/validators"
)

func primitive(t *testing.T, err error) any {
	t.Helper()
	if err == nil {
		return nil
	}
	ve, ok := shape.AsValidationError(err)
	require.True(t, ok, "not a validation error: %v", err)
	return ve.Primitive()
}

func TestLength(t *testing.T) {
	ctx := context.Background()
	max := validators.MaxLength(3)
	assert.NoError(t, max.Validate(ctx, "abc"))
	assert.NoError(t, max.Validate(ctx, "日本語"))
	assert.Equal(t, []string{"Ensure this value has at most 3 characters (it has 4)."}, primitive(t, max.Validate(ctx, "abcd")))
	assert.Error(t, max.Validate(ctx, []any{1, 2, 3, 4}))
	assert.NoError(t, max.Validate(ctx, 12345))

	min := validators.MinLength(2)
	assert.Equal(t, []string{"Ensure this value has at least 2 characters (it has 1)."}, primitive(t, min.Validate(ctx, "a")))
	assert.NoError(t, min.Validate(ctx, map[string]any{"a": 1, "b": 2}))
}

func TestValueLimits(t *testing.T) {
	ctx := context.Background()
	max := validators.MaxValue(10)
	assert.NoError(t, max.Validate(ctx, int64(10)))
	assert.NoError(t, max.Validate(ctx, decimal.RequireFromString("9.99")))
	assert.Equal(t, []string{"Ensure this value is less than or equal to 10."}, primitive(t, max.Validate(ctx, 10.5)))
	assert.Error(t, max.Validate(ctx, json.Number("11")))
	assert.NoError(t, max.Validate(ctx, "99"))
	assert.NoError(t, max.Validate(ctx, true))

	min := validators.MinValue(0.5)
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 0.5."}, primitive(t, min.Validate(ctx, int64(0))))
	assert.NoError(t, min.Validate(ctx, uint8(1)))
}

func TestRegex(t *testing.T) {
	ctx := context.Background()
	re := validators.Regex(`^[a-z]+$`, "")
	assert.NoError(t, re.Validate(ctx, "abc"))
	assert.Equal(t, []string{"Enter a valid value."}, primitive(t, re.Validate(ctx, "ABC")))
	assert.NoError(t, re.Validate(ctx, 5))

	not := validators.NotRegex(`\s`, "No spaces.")
	assert.NoError(t, not.Validate(ctx, "ab"))
	assert.Equal(t, []string{"No spaces."}, primitive(t, not.Validate(ctx, "a b")))

	assert.Panics(t, func() { validators.Regex(`(`, "") })
}

func TestEmailAndURL(t *testing.T) {
	ctx := context.Background()
	email := validators.Email()
	assert.NoError(t, email.Validate(ctx, "ann@example.com"))
	assert.Equal(t, []string{"Enter a valid email address."}, primitive(t, email.Validate(ctx, "ann@localhost")))

	web := validators.URL()
	assert.NoError(t, web.Validate(ctx, "https://example.com/a"))
	assert.Equal(t, []string{"Enter a valid URL."}, primitive(t, web.Validate(ctx, "ftp://example.com")))
	assert.NoError(t, validators.URL("ftp").Validate(ctx, "ftp://example.com"))
	assert.Error(t, web.Validate(ctx, "/relative"))
}

func TestValidatorsOnFields(t *testing.T) {
	schema := dsl.Serializer("User").
		Field("name", dsl.Char(dsl.Validators(validators.MinLength(2), validators.Regex(`^[a-z]+$`, "Lowercase only.")))).
		Field("age", dsl.Integer(dsl.Validators(validators.MinValue(18)))).
		MustBuild()

	s := schema.New(dsl.WithData(map[string]any{"name": "A", "age": 3}))
	require.False(t, s.IsValid(context.Background()))
	assert.Equal(t, map[string]any{
		"name": []string{"Ensure this value has at least 2 characters (it has 1)."},
		"age":  []string{"Ensure this value is greater than or equal to 18."},
	}, s.Errors().Primitive())
}
