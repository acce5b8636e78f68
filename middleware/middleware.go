// Package middleware runs serializers at net/http boundaries.
//
// Validate decodes the request body with a schema before the wrapped handler runs:
//
//	r := mux.NewRouter()
//	r.Handle("/albums/", middleware.Validate(albums)(createAlbum)).Methods(http.MethodPost)
//
// The handler reads the bound serializer back with SerializerFrom, typically to Save it.
// Invalid input is answered with 400 and the error tree (or flattened issues).
package middleware

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
)

// ctxKeySerializer is a typed context key for the bound serializer.
type ctxKeySerializer struct{}

// ContextWithSerializer attaches a validated serializer to the context.
func ContextWithSerializer(ctx context.Context, s *dsl.Instance) context.Context {
	return context.WithValue(ctx, ctxKeySerializer{}, s)
}

// SerializerFrom retrieves the serializer stored by Validate.
func SerializerFrom(ctx context.Context) (*dsl.Instance, bool) {
	s, ok := ctx.Value(ctxKeySerializer{}).(*dsl.Instance)
	return s, ok
}

// ValidatedFrom returns the validated data of the serializer stored by Validate.
func ValidatedFrom(ctx context.Context) (map[string]any, bool) {
	s, ok := SerializerFrom(ctx)
	if !ok {
		return nil, false
	}
	return s.ValidatedData(), s.ValidatedData() != nil
}

// InstanceFunc loads the object a request updates. A nil instance means create.
type InstanceFunc func(r *http.Request) (any, error)

// Option configures Validate.
type Option func(*config)

type config struct {
	issues   bool
	partial  map[string]bool
	instance InstanceFunc
	values   func(r *http.Request) map[string]any
}

// WithIssues answers invalid input with flattened issues instead of the error tree.
func WithIssues() Option { return func(c *config) { c.issues = true } }

// PartialOn selects the methods validated as partial updates. The default is PATCH.
func PartialOn(methods ...string) Option {
	return func(c *config) {
		c.partial = map[string]bool{}
		for _, m := range methods {
			c.partial[m] = true
		}
	}
}

// LoadInstance binds the object returned by fn, for updates and uniqueness checks.
func LoadInstance(fn InstanceFunc) Option { return func(c *config) { c.instance = fn } }

// ContextValues exposes per-request values to validators through shape.ContextValue.
func ContextValues(fn func(r *http.Request) map[string]any) Option {
	return func(c *config) { c.values = fn }
}

// Validate returns middleware that validates the request body against schema.
func Validate(schema *dsl.Schema, opts ...Option) func(http.Handler) http.Handler {
	cfg := config{partial: map[string]bool{http.MethodPatch: true}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := zerolog.Ctx(ctx)

			src, err := BodySource(r)
			if err != nil {
				writeJSON(ctx, w, http.StatusUnsupportedMediaType, map[string]any{"error": err.Error()})
				return
			}
			iopts := []dsl.InstanceOption{dsl.WithSource(src)}
			if cfg.partial[r.Method] {
				iopts = append(iopts, dsl.Partial())
			}
			if cfg.instance != nil {
				inst, err := cfg.instance(r)
				if err != nil {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("instance lookup failed")
					writeJSON(ctx, w, http.StatusNotFound, map[string]any{"error": err.Error()})
					return
				}
				if inst != nil {
					iopts = append(iopts, dsl.WithInstance(inst))
				}
			}
			if cfg.values != nil {
				iopts = append(iopts, dsl.WithContext(cfg.values(r)))
			}

			s := schema.New(iopts...)
			if _, err := s.Validate(ctx); err != nil {
				ve, ok := shape.AsValidationError(err)
				if !ok {
					log.Error().Err(err).Str("schema", schema.Name()).Msg("validation aborted")
					writeJSON(ctx, w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
					return
				}
				if cfg.issues {
					writeJSON(ctx, w, http.StatusBadRequest, ErrorPayload(ve.Issues()))
				} else {
					writeJSON(ctx, w, http.StatusBadRequest, ve)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSerializer(ctx, s)))
		})
	}
}

// BodySource picks a decoder for the request body by content type. JSON is assumed when
// the header is absent.
func BodySource(r *http.Request) (shape.Source, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return shape.JSONReader(r.Body), nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, err
	}
	switch mt {
	case "application/json":
		return shape.JSONReader(r.Body), nil
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil && err != http.ErrNotMultipart {
			return nil, err
		}
		return shape.FormValues(r.PostForm), nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return shape.YAMLBytes(b), nil
	}
	return nil, &UnsupportedMediaTypeError{MediaType: mt}
}

// UnsupportedMediaTypeError reports a request body BodySource cannot decode.
type UnsupportedMediaTypeError struct {
	MediaType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return "unsupported media type " + e.MediaType
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues shape.Issues) map[string]any {
	return map[string]any{"issues": issues}
}

// Render writes the representation of the serializer's instance with the given status.
func Render(w http.ResponseWriter, r *http.Request, status int, s *dsl.Instance) {
	ctx := r.Context()
	data, err := s.Data(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("schema", s.Schema().Name()).Msg("render failed")
		writeJSON(ctx, w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(ctx, w, status, data)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
