package dsl_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
)

type Artist struct {
	ID   int
	Name string
	Slug string
}

func (a *Artist) String() string { return a.Name }

var (
	ann     = &Artist{ID: 1, Name: "Ann", Slug: "ann"}
	bob     = &Artist{ID: 2, Name: "Bob", Slug: "bob"}
	artists = shape.SliceQueryset{ann, bob}
)

// pathLocator builds links of the form /<endpoint>/<ref>/.
type pathLocator struct{}

func (pathLocator) Build(_ context.Context, endpoint string, ref any) (string, error) {
	return fmt.Sprintf("/%s/%v/", endpoint, ref), nil
}

func (pathLocator) Resolve(_ context.Context, loc string) (string, string, error) {
	parts := strings.Split(strings.Trim(loc, "/"), "/")
	if len(parts) != 2 {
		return "", "", errors.New("no route")
	}
	return parts[0], parts[1], nil
}

func TestPrimaryKeyRelated(t *testing.T) {
	f := dsl.PrimaryKeyRelated(dsl.Queryset(artists))

	got, errs := run(t, f, 1)
	require.Nil(t, errs)
	assert.Same(t, ann, got)

	got, errs = run(t, f, "2")
	require.Nil(t, errs)
	assert.Same(t, bob, got)

	_, errs = run(t, f, 9)
	assert.Equal(t, []string{`Invalid pk "9" - object does not exist.`}, errs)

	_, errs = run(t, f, true)
	assert.Equal(t, []string{"Incorrect type. Expected pk value, received bool."}, errs)

	_, errs = run(t, f, map[string]any{"id": 1})
	assert.Equal(t, []string{"Incorrect type. Expected pk value, received dict."}, errs)

	_, errs = run(t, f, "")
	assert.Equal(t, []string{"This field may not be null."}, errs)

	assert.Equal(t, 1, render(t, f, ann))
}

func TestNullableRelationTreatsEmptyStringAsNull(t *testing.T) {
	type Song struct {
		Title  string
		Artist *Artist
	}
	schema := dsl.Serializer("Song").
		Field("title", dsl.Char()).
		Field("artist", dsl.PrimaryKeyRelated(dsl.Queryset(artists), dsl.AllowNull())).
		MustBuild()
	ctx := context.Background()

	got, err := schema.New(dsl.WithData(map[string]any{"title": "x", "artist": ""})).Validate(ctx)
	require.NoError(t, err)
	v, present := got["artist"]
	assert.True(t, present)
	assert.Nil(t, v)

	data, err := schema.New(dsl.WithInstance(&Song{Title: "x"})).Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "x", "artist": nil}, data.ToMap())
}

func TestManyRelated(t *testing.T) {
	f := dsl.PrimaryKeyRelated(dsl.Queryset(artists), dsl.Many(), dsl.AllowEmpty(false))
	_, ok := f.(*dsl.ManyRelatedField)
	require.True(t, ok)

	got, errs := run(t, f, []any{2, "1"})
	require.Nil(t, errs)
	assert.Equal(t, []any{bob, ann}, got)

	_, errs = run(t, f, "1")
	assert.Equal(t, []string{`Expected a list of items but got type "str".`}, errs)

	_, errs = run(t, f, []any{})
	assert.Equal(t, []string{"This list may not be empty."}, errs)

	_, errs = run(t, f, []any{1, 9})
	assert.Equal(t, []string{`Invalid pk "9" - object does not exist.`}, errs)

	assert.Equal(t, []any{1, 2}, render(t, f, []*Artist{ann, bob}))
	assert.Equal(t, []any{2}, render(t, f, shape.SliceQueryset{bob}))
}

func TestRelatedConfiguration(t *testing.T) {
	err := dsl.PrimaryKeyRelated().Spec().Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a Queryset")

	err = dsl.PrimaryKeyRelated(dsl.ReadOnly(), dsl.Queryset(artists)).Spec().Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "may not declare a Queryset")

	err = dsl.PrimaryKeyRelated(dsl.Queryset(artists), dsl.AllowEmpty(false)).Spec().Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AllowEmpty requires Many")

	assert.NoError(t, dsl.PrimaryKeyRelated(dsl.ReadOnly()).Spec().Err())
}

func TestSlugRelated(t *testing.T) {
	f := dsl.SlugRelated("slug", dsl.Queryset(artists))
	got, errs := run(t, f, "bob")
	require.Nil(t, errs)
	assert.Same(t, bob, got)

	_, errs = run(t, f, "zed")
	assert.Equal(t, []string{"Object with slug=zed does not exist."}, errs)

	_, errs = run(t, f, []any{"bob"})
	assert.Equal(t, []string{"Invalid value."}, errs)

	assert.Equal(t, "ann", render(t, f, ann))
}

func TestHyperlinkedRelated(t *testing.T) {
	f := dsl.HyperlinkedRelated("artist-detail", pathLocator{}, dsl.Queryset(artists))

	got, errs := run(t, f, "/artist-detail/1/")
	require.Nil(t, errs)
	assert.Same(t, ann, got)

	_, errs = run(t, f, "/album-detail/1/")
	assert.Equal(t, []string{"Invalid hyperlink - Incorrect URL match."}, errs)

	_, errs = run(t, f, "nowhere")
	assert.Equal(t, []string{"Invalid hyperlink - No URL match."}, errs)

	_, errs = run(t, f, "/artist-detail/9/")
	assert.Equal(t, []string{"Invalid hyperlink - Object does not exist."}, errs)

	_, errs = run(t, f, 5)
	assert.Equal(t, []string{"Incorrect type. Expected URL string, received int."}, errs)

	assert.Equal(t, "/artist-detail/2/", render(t, f, bob))
	assert.Nil(t, render(t, f, &Artist{Name: "unsaved"}))

	slugLinks := dsl.HyperlinkedRelated("artist-detail", pathLocator{}, dsl.Queryset(artists), dsl.LookupField("slug"))
	got, errs = run(t, slugLinks, "/artist-detail/bob/")
	require.Nil(t, errs)
	assert.Same(t, bob, got)
}

func TestIdentityAndStringRelations(t *testing.T) {
	type Band struct {
		Name    string
		Members []*Artist
		Leader  *Artist
	}
	artistSchema := dsl.Serializer("Artist").
		Field("url", dsl.HyperlinkedIdentity("artist-detail", pathLocator{})).
		Field("name", dsl.Char()).
		MustBuild()
	data, err := artistSchema.New(dsl.WithInstance(ann)).Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "/artist-detail/1/", "name": "Ann"}, data.ToMap())

	bandSchema := dsl.Serializer("Band").
		Field("name", dsl.Char()).
		Field("members", dsl.StringRelated(dsl.Many())).
		Field("leader", dsl.StringRelated()).
		MustBuild()
	data, err = bandSchema.New(dsl.WithInstance(&Band{Name: "Duo", Members: []*Artist{ann, bob}, Leader: bob})).Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Duo", "members": []any{"Ann", "Bob"}, "leader": "Bob"}, data.ToMap())

	got, err := bandSchema.New(dsl.WithData(map[string]any{"name": "Trio", "members": []any{"x"}})).Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Trio"}, got)

	err = dsl.HyperlinkedIdentity("artist-detail", pathLocator{}, dsl.Many()).Spec().Err()
	assert.Error(t, err)
}

func TestReverseRelated(t *testing.T) {
	ctx := context.Background()
	readOnly := dsl.Serializer("Album").
		Field("album_name", dsl.Char()).
		Field("tracks", dsl.ReverseRelated(trackSchema())).
		MustBuild()
	data, err := readOnly.New(dsl.WithInstance(&Album{
		AlbumName: "A",
		Tracks:    []*Track{{Order: 1, Title: "t", Duration: 3}},
	})).Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"order": int64(1), "title": "t", "duration": int64(3)}},
		data.ToMap()["tracks"])

	got, err := readOnly.New(dsl.WithData(map[string]any{"album_name": "A", "tracks": "ignored"})).Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"album_name": "A"}, got)

	var stored []any
	var storedFor any
	var created map[string]any
	writable := dsl.Serializer("Album").
		Field("album_name", dsl.Char()).
		Field("tracks", dsl.ReverseRelated(trackSchema(), dsl.Writable(),
			dsl.ReverseWrites(dsl.ReverseWriterFunc(func(_ context.Context, instance any, field string, related []any) error {
				assert.Equal(t, "tracks", field)
				storedFor, stored = instance, related
				return nil
			})))).
		Create(func(_ context.Context, data map[string]any) (any, error) {
			created = data
			return &Album{ID: 1, AlbumName: data["album_name"].(string)}, nil
		}).
		MustBuild()

	s := writable.New(dsl.WithData(map[string]any{
		"album_name": "A",
		"tracks": []any{
			map[string]any{"order": 1, "title": "t", "duration": 3},
			map[string]any{"order": 2, "title": "u", "duration": "x"},
		},
	}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{"tracks": []any{
		map[string]any{},
		map[string]any{"duration": []string{"Enter a whole number."}},
	}}, s.Errors().Primitive())

	s = writable.New(dsl.WithData(map[string]any{
		"album_name": "A",
		"tracks":     []any{map[string]any{"order": 1, "title": "t", "duration": 3}},
	}))
	require.True(t, s.IsValid(ctx))
	inst, err := s.Save(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"album_name": "A"}, created)
	assert.Same(t, inst, storedFor)
	assert.Equal(t, []any{map[string]any{"order": int64(1), "title": "t", "duration": int64(3)}}, stored)

	err = dsl.ReverseRelated(trackSchema(), dsl.Writable()).Spec().Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires ReverseWrites")
}
