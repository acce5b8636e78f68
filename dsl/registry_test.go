package dsl_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/shape/dsl"
	js "github.com/reoring/shape/jsonschema"
)

func TestRegistry(t *testing.T) {
	r := dsl.NewRegistry()
	require.NoError(t, r.Register(trackSchema()))
	assert.ErrorIs(t, r.Register(trackSchema()), dsl.ErrDuplicateSchema)
	r.MustRegister(dsl.Serializer("Artist").Field("name", dsl.Char()).MustBuild())
	assert.Equal(t, []string{"Artist", "Track"}, r.Names())

	s, err := r.Lookup("Track")
	require.NoError(t, err)
	assert.Equal(t, "Track", s.Name())

	_, err = r.Lookup("Nope")
	assert.ErrorIs(t, err, dsl.ErrUnknownSchema)
	assert.Panics(t, func() { r.MustRegister(trackSchema()) })
}

func TestRegistryLogging(t *testing.T) {
	var global bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&global)
	t.Cleanup(func() { log.Logger = prev })

	require.NoError(t, dsl.NewRegistry().Register(trackSchema()))
	assert.Empty(t, global.String())

	var own bytes.Buffer
	r := dsl.NewRegistry(dsl.RegistryLogger(zerolog.New(&own).Level(zerolog.DebugLevel)))
	require.NoError(t, r.Register(trackSchema()))
	assert.Contains(t, own.String(), `"schema":"Track"`)
	assert.Contains(t, own.String(), "registered schema")
	assert.Empty(t, global.String())
}

func TestRefResolvesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	r := dsl.NewRegistry()
	album := dsl.Serializer("Album").
		Field("album_name", dsl.Char()).
		Field("tracks", r.Ref("Track", dsl.Many(), dsl.AllowEmpty(false))).
		Field("best", r.Ref("Track", dsl.Required(false), dsl.AllowNull())).
		MustBuild()
	r.MustRegister(trackSchema())

	s := album.New(dsl.WithData(map[string]any{"album_name": "A", "tracks": []any{}, "best": nil}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{
		"tracks": map[string]any{"non_field_errors": []string{"This list may not be empty."}},
	}, s.Errors().Primitive())

	got, err := album.New(dsl.WithData(map[string]any{
		"album_name": "A",
		"tracks":     []any{map[string]any{"order": 1, "title": "t", "duration": 3}},
	})).Validate(ctx)
	require.NoError(t, err)
	assert.Len(t, got["tracks"], 1)

	data, err := album.New(dsl.WithInstance(&Album{AlbumName: "A", Tracks: []*Track{{Order: 1, Title: "t", Duration: 3}}})).Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"album_name", "tracks", "best"}, data.Keys())
	best, _ := data.Get("best")
	assert.Nil(t, best)

	err = r.Ref("Track", dsl.MinLength(1)).Spec().Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires Many")
}

func TestRefToUnknownSchemaFails(t *testing.T) {
	r := dsl.NewRegistry()
	s := dsl.Serializer("Holder").Field("x", r.Ref("Missing")).MustBuild().
		New(dsl.WithData(map[string]any{"x": map[string]any{}}))
	_, err := s.Validate(context.Background())
	assert.ErrorIs(t, err, dsl.ErrUnknownSchema)
	assert.Nil(t, s.Errors())
}

func TestJSONSchema(t *testing.T) {
	r := dsl.NewRegistry()
	r.MustRegister(trackSchema())
	album := dsl.Serializer("Album").
		Field("id", dsl.Integer(dsl.ReadOnly())).
		Field("album_name", dsl.Char(dsl.MaxLength(100), dsl.Label("Album name"))).
		Field("rating", dsl.Integer(dsl.MinValue(1), dsl.MaxValue(5), dsl.AllowNull(), dsl.Required(false))).
		Field("genre", dsl.Choice([]any{"rock", "jazz"}, dsl.Default("rock"))).
		Field("tracks", r.Ref("Track", dsl.Many())).
		MustBuild()

	doc, err := album.JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, js.Draft, doc.SchemaURI)
	assert.Equal(t, "Album", doc.Title)
	assert.Equal(t, []string{"id", "album_name", "rating", "genre", "tracks"}, doc.PropertyOrder)
	assert.Equal(t, []string{"album_name", "tracks"}, doc.Required)
	assert.True(t, doc.Properties["id"].ReadOnly)
	assert.Equal(t, []string{"integer", "null"}, doc.Properties["rating"].Type)
	assert.Equal(t, "Album name", doc.Properties["album_name"].Title)
	assert.Equal(t, "rock", doc.Properties["genre"].Default)
	assert.Equal(t, "#/$defs/Track", doc.Properties["tracks"].Items.Ref)
	require.Contains(t, doc.Defs, "Track")
	assert.Equal(t, []string{"order", "title", "duration"}, doc.Defs["Track"].Required)

	b, err := js.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"$defs"`)
	assert.Contains(t, string(b), `"maximum": 5`)
}

func TestJSONSchemaSelfReference(t *testing.T) {
	doc, err := nodeSchema(0).JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, "#/$defs/Node", doc.Properties["parent"].Ref)
	require.Contains(t, doc.Defs, "Node")
	assert.Equal(t, "#/$defs/Node", doc.Defs["Node"].Properties["parent"].Ref)
}
