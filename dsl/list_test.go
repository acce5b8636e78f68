package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
)

type Item struct {
	ID   int
	Name string
}

type itemStore struct {
	created []map[string]any
	updated []*Item
	deleted []*Item
}

func (st *itemStore) schema() *dsl.Schema {
	return dsl.Serializer("Item").
		Field("id", dsl.Integer()).
		Field("name", dsl.Char()).
		Create(func(_ context.Context, data map[string]any) (any, error) {
			st.created = append(st.created, data)
			return &Item{ID: int(data["id"].(int64)), Name: data["name"].(string)}, nil
		}).
		Update(func(_ context.Context, instance any, data map[string]any) (any, error) {
			it := instance.(*Item)
			it.Name = data["name"].(string)
			st.updated = append(st.updated, it)
			return it, nil
		}).
		Delete(func(_ context.Context, instance any) error {
			st.deleted = append(st.deleted, instance.(*Item))
			return nil
		}).
		MustBuild()
}

func TestListShapeErrors(t *testing.T) {
	ctx := context.Background()
	list := (&itemStore{}).schema().Many()

	s := list.New(dsl.WithData(123))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{`Expected a list of items but got type "int".`},
	}, s.Errors().Primitive())

	s = list.New(dsl.WithData(nil))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{"This field may not be null."},
	}, s.Errors().Primitive())

	s = (&itemStore{}).schema().Many(dsl.AllowEmpty(false)).New(dsl.WithData([]any{}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{"This list may not be empty."},
	}, s.Errors().Primitive())

	s = (&itemStore{}).schema().Many(dsl.MaxLength(1)).New(dsl.WithData([]any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
	}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"non_field_errors": []string{"Ensure this field has no more than 1 elements."},
	}, s.Errors().Primitive())
}

func TestListItemErrors(t *testing.T) {
	ctx := context.Background()
	s := (&itemStore{}).schema().Many().New(dsl.WithData([]any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2},
		"nope",
	}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, []any{
		map[string]any{},
		map[string]any{"name": []string{"This field is required."}},
		map[string]any{"non_field_errors": []string{"Invalid data. Expected a dictionary, but got str."}},
	}, s.Errors().Primitive())
	assert.Nil(t, s.ValidatedData())
}

func TestNestedListShapeError(t *testing.T) {
	s := albumSchema().New(dsl.WithData(map[string]any{"album_name": "A", "artist": "B", "tracks": 5}))
	require.False(t, s.IsValid(context.Background()))
	assert.Equal(t, map[string]any{
		"tracks": map[string]any{
			"non_field_errors": []string{`Expected a list of items but got type "int".`},
		},
	}, s.Errors().Primitive())
}

func TestListCreate(t *testing.T) {
	ctx := context.Background()
	st := &itemStore{}
	s := st.schema().Many().New(dsl.WithData([]any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
	}))
	require.True(t, s.IsValid(ctx))
	saved, err := s.Save(ctx, map[string]any{"owner": "ann"})
	require.NoError(t, err)
	assert.Equal(t, []any{&Item{ID: 1, Name: "a"}, &Item{ID: 2, Name: "b"}}, saved)
	require.Len(t, st.created, 2)
	assert.Equal(t, "ann", st.created[1]["owner"])
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	input := []any{
		map[string]any{"id": 1, "name": "A"},
		map[string]any{"id": 3, "name": "c"},
	}

	t.Run("remove", func(t *testing.T) {
		st := &itemStore{}
		a, b := &Item{ID: 1, Name: "a"}, &Item{ID: 2, Name: "b"}
		s := st.schema().Many(dsl.MatchOn("id"), dsl.AllowRemove()).
			New(dsl.WithInstance([]*Item{a, b}), dsl.WithData(input))
		require.True(t, s.IsValid(ctx))
		saved, err := s.Save(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{a, &Item{ID: 3, Name: "c"}}, saved)
		assert.Equal(t, "A", a.Name)
		assert.Equal(t, []*Item{a}, st.updated)
		assert.Equal(t, []*Item{b}, st.deleted)
	})

	t.Run("keep", func(t *testing.T) {
		st := &itemStore{}
		a, b := &Item{ID: 1, Name: "a"}, &Item{ID: 2, Name: "b"}
		s := st.schema().Many(dsl.MatchOn("id")).
			New(dsl.WithInstance(shape.SliceOf([]*Item{a, b})), dsl.WithData(input))
		require.True(t, s.IsValid(ctx))
		saved, err := s.Save(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{a, &Item{ID: 3, Name: "c"}, b}, saved)
		assert.Empty(t, st.deleted)
	})

	t.Run("requires match field", func(t *testing.T) {
		s := (&itemStore{}).schema().Many().
			New(dsl.WithInstance([]*Item{{ID: 1}}), dsl.WithData(input))
		require.True(t, s.IsValid(ctx))
		_, err := s.Save(ctx, nil)
		assert.ErrorIs(t, err, dsl.ErrNotImplemented)
	})
}

func TestListConfiguration(t *testing.T) {
	st := &itemStore{}
	assert.Error(t, st.schema().Many(dsl.AllowRemove()).Err())
	assert.Error(t, st.schema().Many(dsl.MatchOn("missing")).Err())

	noDelete := dsl.Serializer("NoDelete").Field("id", dsl.Integer()).MustBuild()
	l := noDelete.Many(dsl.MatchOn("id"), dsl.AllowRemove())
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), "requires a Delete hook")

	_, err := l.New(dsl.WithData([]any{})).Validate(context.Background())
	var cfg *shape.ConfigError
	assert.ErrorAs(t, err, &cfg)
}

func TestListData(t *testing.T) {
	ctx := context.Background()
	list := (&itemStore{}).schema().Many()

	data, err := list.New(dsl.WithInstance([]*Item{{ID: 1, Name: "a"}})).Data(ctx)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "a"}, data[0].(*shape.OrderedMap).ToMap())

	s := list.New(dsl.WithData([]any{"bad"}))
	_, err = s.Data(ctx)
	require.ErrorIs(t, err, dsl.ErrNotValidated)
	require.False(t, s.IsValid(ctx))
	data, err = s.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"bad"}, data)
}
