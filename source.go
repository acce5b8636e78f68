package shape

import (
	"context"
	"errors"
	"io"
	"net/url"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/shape/internal/engine"
	"github.com/rs/zerolog"
)

// Source produces primitive input (maps, lists, scalars) for deserialization.
type Source interface {
	Decode(ctx context.Context) (any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (any, error)

func (f SourceFunc) Decode(ctx context.Context) (any, error) { return f(ctx) }

// Value wraps already-decoded primitive data.
func Value(v any) Source {
	return SourceFunc(func(context.Context) (any, error) { return v, nil })
}

// JSONBytes decodes JSON with go-json, keeping numbers as json.Number literals. Duplicate
// keys, nesting depth and size are enforced according to Settings.Input.
func JSONBytes(b []byte) Source {
	return SourceFunc(func(ctx context.Context) (any, error) {
		in := SettingsFrom(ctx).Input
		if in.MaxBytes > 0 && int64(len(b)) > in.MaxBytes {
			return nil, inputError(CodeTruncated, "max bytes exceeded")
		}
		return decodeJSON(ctx, eng.NewJSONBytes(b))
	})
}

// JSONReader decodes JSON from r. When Settings.Input.MaxBytes is set the reader is capped.
func JSONReader(r io.Reader) Source {
	return SourceFunc(func(ctx context.Context) (any, error) {
		in := SettingsFrom(ctx).Input
		if in.MaxBytes > 0 {
			data, err := io.ReadAll(io.LimitReader(r, in.MaxBytes+1))
			if err != nil {
				return nil, inputError(CodeParseError, err.Error())
			}
			if int64(len(data)) > in.MaxBytes {
				return nil, inputError(CodeTruncated, "max bytes exceeded")
			}
			return decodeJSON(ctx, eng.NewJSONBytes(data))
		}
		return decodeJSON(ctx, eng.NewJSONReader(r))
	})
}

func decodeJSON(ctx context.Context, src eng.TokenSource) (any, error) {
	in := SettingsFrom(ctx).Input
	logger := zerolog.Ctx(ctx)
	enforced := eng.WrapWithEnforcement(src, eng.EnforceOptions{
		OnDuplicate: toEngineDup(in.OnDuplicateKey),
		MaxDepth:    in.MaxDepth,
		IssueSink: func(si eng.SimpleIssue) {
			logger.Warn().Str("path", si.Path).Str("code", si.Code).Msg(si.Message)
		},
	})
	v, err := eng.DecodeAny(enforced)
	if err != nil {
		var ie eng.IssueError
		if errors.As(err, &ie) {
			return nil, inputError(ie.Code, ie.Message+" at "+ie.Path)
		}
		return nil, inputError(CodeParseError, "JSON parse error - "+err.Error())
	}
	return v, nil
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

// YAMLBytes decodes a YAML document with yaml.v3.
func YAMLBytes(b []byte) Source {
	return SourceFunc(func(ctx context.Context) (any, error) {
		in := SettingsFrom(ctx).Input
		if in.MaxBytes > 0 && int64(len(b)) > in.MaxBytes {
			return nil, inputError(CodeTruncated, "max bytes exceeded")
		}
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, inputError(CodeParseError, "YAML parse error - "+err.Error())
		}
		return normalizeYAML(v), nil
	})
}

// normalizeYAML turns map[any]any produced for non-string keys into map[string]any where
// every key is a string; other maps are left alone and rejected later as non-mappings.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	default:
		return v
	}
}

// FormValues expands flattened HTML form keys (dotted or bracketed) into nested data.
func FormValues(v url.Values) Source {
	return SourceFunc(func(context.Context) (any, error) { return ExpandForm(v), nil })
}

// ExpandForm rebuilds nested data from flattened form keys such as "tracks[0][title]" or
// "artist.name".
func ExpandForm(v map[string][]string) map[string]any { return eng.ExpandForm(v) }

func inputError(code, msg string) *ValidationError {
	return &ValidationError{Detail: ErrorDict{NonFieldErrors: ErrorList{{Code: code, Message: msg}}}}
}
