package validators_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/validators"
)

type Member struct {
	ID    int
	Email string
	Team  string
	Seat  int
}

var (
	ann     = &Member{ID: 1, Email: "ann@example.com", Team: "red", Seat: 1}
	bob     = &Member{ID: 2, Email: "bob@example.com", Team: "red", Seat: 2}
	members = shape.SliceQueryset{ann, bob}
)

type failingQueryset struct{}

func (failingQueryset) Get(context.Context, string, any) (any, error) {
	return nil, errors.New("connection refused")
}

func (failingQueryset) All(context.Context) ([]any, error) {
	return nil, errors.New("connection refused")
}

func TestUnique(t *testing.T) {
	ctx := context.Background()
	v := validators.Unique(members, "email")

	assert.NoError(t, v.Validate(ctx, "new@example.com"))
	assert.Equal(t, []string{"This field must be unique."}, primitive(t, v.Validate(ctx, "ann@example.com")))
	assert.NoError(t, v.Validate(shape.WithInstance(ctx, ann), "ann@example.com"))
	assert.Error(t, v.Validate(shape.WithInstance(ctx, bob), "ann@example.com"))

	err := validators.Unique(failingQueryset{}, "email").Validate(ctx, "x")
	require.Error(t, err)
	_, isValidation := shape.AsValidationError(err)
	assert.False(t, isValidation)
	assert.Contains(t, err.Error(), "connection refused")
}

func memberSchema() *dsl.Schema {
	return dsl.Serializer("Member").
		Field("email", dsl.Email(dsl.Validators(validators.Unique(members, "email")))).
		Field("team", dsl.Char()).
		Field("seat", dsl.Integer()).
		Validators(validators.UniqueTogether(members, "team", "seat")).
		MustBuild()
}

func TestUniqueOnSchema(t *testing.T) {
	ctx := context.Background()

	s := memberSchema().New(dsl.WithData(map[string]any{"email": "ann@example.com", "team": "blue", "seat": 1}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{"email": []string{"This field must be unique."}}, s.Errors().Primitive())

	s = memberSchema().New(dsl.WithData(map[string]any{"email": "cy@example.com", "team": "red", "seat": 2}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{"The fields team, seat must make a unique set."},
	}, s.Errors().Primitive())

	s = memberSchema().New(dsl.WithData(map[string]any{"email": "cy@example.com", "team": "red", "seat": 3}))
	assert.True(t, s.IsValid(ctx))
}

func TestUniqueTogetherOnUpdate(t *testing.T) {
	ctx := context.Background()

	s := memberSchema().New(dsl.WithInstance(bob), dsl.WithData(map[string]any{"email": "bob@example.com", "team": "red", "seat": 2}))
	assert.True(t, s.IsValid(ctx))

	s = memberSchema().New(dsl.WithInstance(bob), dsl.WithData(map[string]any{"seat": 1}), dsl.Partial())
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{"The fields team, seat must make a unique set."},
	}, s.Errors().Primitive())

	err := validators.UniqueTogether(failingQueryset{}, "team").Validate(ctx, map[string]any{"team": "red"})
	assert.ErrorContains(t, err, "connection refused")
}
