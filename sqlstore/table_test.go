package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/sqlstore"
	"github.com/reoring/shape/validators"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE artists (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL
		);
		INSERT INTO artists (name, slug) VALUES ('Ann', 'ann'), ('Bob', 'bob'), ('Bob', 'bobby');
	`)
	require.NoError(t, err)
	return db
}

func artistTable(t *testing.T, db *sql.DB) *sqlstore.Table {
	t.Helper()
	tbl, err := sqlstore.NewTable(db, "artists", []string{"id", "name", "slug"})
	require.NoError(t, err)
	return tbl
}

func TestNewTableRejectsBadIdentifiers(t *testing.T) {
	db := openDB(t)
	_, err := sqlstore.NewTable(db, "artists; DROP TABLE x", []string{"id"})
	assert.Error(t, err)
	_, err = sqlstore.NewTable(db, "artists", []string{"id", "na me"})
	assert.Error(t, err)
	_, err = sqlstore.NewTable(db, "artists", []string{"name"})
	assert.ErrorIs(t, err, sqlstore.ErrUnknownColumn)
	_, err = sqlstore.NewTable(db, "artists", []string{"name", "slug"}, sqlstore.PrimaryKey("slug"))
	assert.NoError(t, err)
}

func TestQueryset(t *testing.T) {
	ctx := context.Background()
	tbl := artistTable(t, openDB(t))

	got, err := tbl.Get(ctx, "slug", "ann")
	require.NoError(t, err)
	row := got.(*shape.OrderedMap)
	assert.Equal(t, []string{"id", "name", "slug"}, row.Keys())
	assert.Equal(t, map[string]any{"id": int64(1), "name": "Ann", "slug": "ann"}, row.ToMap())

	got, err = tbl.Get(ctx, "id", "2")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.(*shape.OrderedMap).ToMap()["slug"])

	_, err = tbl.Get(ctx, "slug", "zed")
	assert.ErrorIs(t, err, shape.ErrNotFound)
	_, err = tbl.Get(ctx, "name", "Bob")
	assert.ErrorIs(t, err, shape.ErrMultipleFound)
	_, err = tbl.Get(ctx, "password", "x")
	assert.ErrorIs(t, err, sqlstore.ErrUnknownColumn)

	all, err := tbl.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	tbl := artistTable(t, openDB(t))

	created, err := tbl.Create(ctx, map[string]any{"name": "Cy", "slug": "cy"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(4), "name": "Cy", "slug": "cy"}, created.(*shape.OrderedMap).ToMap())

	_, err = tbl.Create(ctx, map[string]any{"name": "Dee", "slug": "dee", "age": 3})
	assert.ErrorIs(t, err, sqlstore.ErrUnknownColumn)
	_, err = tbl.Create(ctx, map[string]any{"name": "Dee", "slug": []any{"x"}})
	assert.Error(t, err)

	updated, err := tbl.Update(ctx, created, map[string]any{"name": "Cyrus"})
	require.NoError(t, err)
	assert.Equal(t, "Cyrus", updated.(*shape.OrderedMap).ToMap()["name"])

	type artist struct{ ID int64 }
	updated, err = tbl.Update(ctx, &artist{ID: 1}, map[string]any{"slug": "annie"})
	require.NoError(t, err)
	assert.Equal(t, "annie", updated.(*shape.OrderedMap).ToMap()["slug"])

	_, err = tbl.Update(ctx, struct{}{}, map[string]any{"slug": "x"})
	assert.Error(t, err)

	require.NoError(t, tbl.Delete(ctx, created))
	_, err = tbl.Get(ctx, "slug", "cy")
	assert.ErrorIs(t, err, shape.ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(ctx, created), shape.ErrNotFound)
}

func TestTableBehindSerializers(t *testing.T) {
	ctx := context.Background()
	tbl := artistTable(t, openDB(t))

	schema := dsl.Serializer("Artist").
		Field("id", dsl.Integer(dsl.ReadOnly())).
		Field("name", dsl.Char()).
		Field("slug", dsl.Slug(dsl.Validators(validators.Unique(tbl, "slug")))).
		Persister(tbl).
		MustBuild()

	s := schema.New(dsl.WithData(map[string]any{"name": "Ann 2", "slug": "ann"}))
	require.False(t, s.IsValid(ctx))
	assert.Equal(t, map[string]any{"slug": []string{"This field must be unique."}}, s.Errors().Primitive())

	s = schema.New(dsl.WithData(map[string]any{"name": "Cy", "slug": "cy"}))
	require.True(t, s.IsValid(ctx))
	saved, err := s.Save(ctx, nil)
	require.NoError(t, err)
	data, err := s.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(4), "name": "Cy", "slug": "cy"}, data.ToMap())

	s = schema.New(dsl.WithInstance(saved), dsl.WithData(map[string]any{"slug": "cy"}), dsl.Partial())
	require.True(t, s.IsValid(ctx))

	type Single struct {
		Title  string
		Artist any
	}
	single := dsl.Serializer("Single").
		Field("title", dsl.Char()).
		Field("artist", dsl.SlugRelated("slug", dsl.Queryset(tbl))).
		MustBuild()
	got, err := single.New(dsl.WithData(map[string]any{"title": "x", "artist": "bob"})).Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got["artist"].(*shape.OrderedMap).ToMap()["id"])

	out, err := single.New(dsl.WithInstance(&Single{Title: "x", Artist: got["artist"]})).Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "x", "artist": "bob"}, out.ToMap())
}
