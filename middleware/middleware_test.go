package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/middleware"
)

type Record struct {
	ID   int
	Name string
	Year int
}

type records struct {
	byID map[int]*Record
	next int
}

func (rs *records) schema() *dsl.Schema {
	return dsl.Serializer("Record").
		Field("id", dsl.Integer(dsl.ReadOnly())).
		Field("name", dsl.Char(dsl.MaxLength(5))).
		Field("year", dsl.Integer(dsl.MinValue(1900))).
		Create(func(_ context.Context, data map[string]any) (any, error) {
			rs.next++
			rec := &Record{ID: rs.next, Name: data["name"].(string), Year: int(data["year"].(int64))}
			rs.byID[rec.ID] = rec
			return rec, nil
		}).
		Update(func(_ context.Context, instance any, data map[string]any) (any, error) {
			rec := instance.(*Record)
			if v, ok := data["name"]; ok {
				rec.Name = v.(string)
			}
			if v, ok := data["year"]; ok {
				rec.Year = int(v.(int64))
			}
			return rec, nil
		}).
		MustBuild()
}

func (rs *records) load(r *http.Request) (any, error) {
	id, err := strconv.Atoi(mux.Vars(r)["pk"])
	if err != nil {
		return nil, err
	}
	rec, ok := rs.byID[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return rec, nil
}

func save(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SerializerFrom(r.Context())
		if !ok {
			http.Error(w, "no serializer", http.StatusInternalServerError)
			return
		}
		if _, err := s.Save(r.Context(), nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		middleware.Render(w, r, status, s)
	})
}

func newRouter(rs *records, opts ...middleware.Option) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/records/", middleware.Validate(rs.schema(), opts...)(save(http.StatusCreated))).
		Methods(http.MethodPost)
	update := append([]middleware.Option{middleware.LoadInstance(rs.load)}, opts...)
	r.Handle("/records/{pk}/", middleware.Validate(rs.schema(), update...)(save(http.StatusOK))).
		Methods(http.MethodPut, http.MethodPatch)
	return r
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestValidateCreates(t *testing.T) {
	rs := &records{byID: map[int]*Record{}}
	h := newRouter(rs)

	rec := do(t, h, http.MethodPost, "/records/", "application/json", `{"name":"Ann","year":1999}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1,"name":"Ann","year":1999}`, rec.Body.String())
	assert.Equal(t, &Record{ID: 1, Name: "Ann", Year: 1999}, rs.byID[1])

	rec = do(t, h, http.MethodPost, "/records/", "application/x-www-form-urlencoded", "name=Bob&year=2001")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":2,"name":"Bob","year":2001}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/records/", "application/yaml", "name: Cy\nyear: 1950\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":3,"name":"Cy","year":1950}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/records/", "", `{"name":"Dee","year":1960}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestValidateRejects(t *testing.T) {
	rs := &records{byID: map[int]*Record{}}
	h := newRouter(rs)

	rec := do(t, h, http.MethodPost, "/records/", "application/json", `{"name":"Annabel","year":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"name": ["Ensure this field has no more than 5 characters."],
		"year": ["Enter a whole number."]
	}`, rec.Body.String())
	assert.Empty(t, rs.byID)

	rec = do(t, h, http.MethodPost, "/records/", "application/json", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/records/", "text/csv", "name,year")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported media type text/csv")

	h = newRouter(rs, middleware.WithIssues())
	rec = do(t, h, http.MethodPost, "/records/", "application/json", `{"name":"Ann"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"issues":[{"path":"/year","code":"required","message":"This field is required."}]}`,
		rec.Body.String())
}

func TestValidateUpdates(t *testing.T) {
	rs := &records{byID: map[int]*Record{7: {ID: 7, Name: "Ann", Year: 1999}}, next: 7}
	h := newRouter(rs)

	rec := do(t, h, http.MethodPatch, "/records/7/", "application/json", `{"name":"Zed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"name":"Zed","year":1999}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/records/7/", "application/json", `{"name":"Zed"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"year":["This field is required."]}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/records/7/", "application/json", `{"name":"Ada","year":1815}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"year":["Ensure this value is greater than or equal to 1900."]}`, rec.Body.String())

	rec = do(t, h, http.MethodPatch, "/records/9/", "application/json", `{"name":"Zed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "record not found")

	h = newRouter(rs, middleware.PartialOn(http.MethodPut))
	rec = do(t, h, http.MethodPut, "/records/7/", "application/json", `{"year":2000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"name":"Zed","year":2000}`, rec.Body.String())
}

func TestContextValuesAndValidatedData(t *testing.T) {
	schema := dsl.Serializer("Note").Field("text", dsl.Char()).MustBuild()
	var got map[string]any
	h := middleware.Validate(schema, middleware.ContextValues(func(r *http.Request) map[string]any {
		return map[string]any{"user": r.Header.Get("X-User")}
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.ValidatedFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := do(t, h, http.MethodPost, "/", "application/json", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, map[string]any{"text": "hi"}, got)

	_, ok := middleware.ValidatedFrom(context.Background())
	assert.False(t, ok)
}
