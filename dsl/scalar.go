package dsl

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	shape "github.com/reoring/shape"
)

// BooleanField accepts booleans and their common textual and numeric spellings.
type BooleanField struct{ *Base }

// Boolean returns a bool field.
func Boolean(opts ...Option) *BooleanField {
	b, _ := newBase("boolean", opts)
	b.finish()
	return &BooleanField{Base: b}
}

var (
	trueValues  = map[string]bool{"t": true, "true": true, "y": true, "yes": true, "on": true, "1": true}
	falseValues = map[string]bool{"f": true, "false": true, "n": true, "no": true, "off": true, "0": true}
)

func parseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if trueValues[s] {
			return true, true
		}
		if falseValues[s] {
			return false, true
		}
		return false, false
	}
	if n, ok := asInt64(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

func (f *BooleanField) ToInternalValue(_ context.Context, data any) (any, error) {
	if v, ok := parseBool(data); ok {
		return v, nil
	}
	return nil, f.fail(shape.CodeInvalid, nil)
}

func (f *BooleanField) ToRepresentation(_ context.Context, value any) (any, error) {
	if v, ok := parseBool(value); ok {
		return v, nil
	}
	rv := reflect.ValueOf(value)
	return !rv.IsZero(), nil
}

// CharField accepts strings and numbers, rendered back as strings.
type CharField struct {
	*Base
	maxLength, minLength *int
	// check validates the converted string; it reports the field's "invalid" kind.
	check func(string) bool
	// normalize rewrites a valid string (for example IP address canonicalization).
	normalize func(string) string
}

var charOptions = []string{optAllowBlank, optMaxLength, optMinLength, optTrimWhitespace}

func newChar(typ string, opts []Option, accepted ...string) *CharField {
	b, o := newBase(typ, opts, append(accepted, charOptions...)...)
	b.declare(shape.CodeBlank, shape.CodeMaxLength, shape.CodeMinLength)
	b.blankable = true
	b.trim = o.trim == nil || *o.trim
	f := &CharField{Base: b, maxLength: o.maxLength, minLength: o.minLength}
	if f.maxLength != nil && f.minLength != nil && *f.minLength > *f.maxLength {
		b.errorf("MinLength %d exceeds MaxLength %d", *f.minLength, *f.maxLength)
	}
	return f
}

// Char returns a string field.
func Char(opts ...Option) *CharField {
	f := newChar("char", opts)
	f.finish()
	return f
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)+$`)

// Email returns a string field that only accepts e-mail addresses.
func Email(opts ...Option) *CharField {
	f := newChar("email", opts)
	f.check = emailPattern.MatchString
	f.finish()
	return f
}

// Regex returns a string field whose values must match pattern. An invalid pattern is a
// configuration error.
func Regex(pattern string, opts ...Option) *CharField {
	f := newChar("regex", opts)
	re, err := regexp.Compile(pattern)
	if err != nil {
		f.errorf("invalid pattern: %v", err)
		re = regexp.MustCompile(`.*`)
	}
	f.check = re.MatchString
	f.finish()
	return f
}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Slug returns a string field restricted to letters, digits, underscores and hyphens.
func Slug(opts ...Option) *CharField {
	f := newChar("slug", opts)
	f.check = slugPattern.MatchString
	f.finish()
	return f
}

// URL returns a string field that accepts absolute http(s) and ftp(s) URLs.
func URL(opts ...Option) *CharField {
	f := newChar("url", opts)
	f.check = func(s string) bool {
		u, err := url.ParseRequestURI(s)
		if err != nil || u.Host == "" {
			return false
		}
		switch u.Scheme {
		case "http", "https", "ftp", "ftps":
			return true
		}
		return false
	}
	f.finish()
	return f
}

// IPAddress returns a string field accepting IPv4 and IPv6 addresses, stored in canonical
// form.
func IPAddress(opts ...Option) *CharField {
	f := newChar("ip", opts)
	f.check = func(s string) bool {
		_, err := netip.ParseAddr(s)
		return err == nil
	}
	f.normalize = func(s string) string { return netip.MustParseAddr(s).String() }
	f.finish()
	return f
}

func (f *CharField) ToInternalValue(_ context.Context, data any) (any, error) {
	var s string
	switch t := data.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		return nil, f.fail(shape.CodeInvalid, nil)
	default:
		if _, ok := asFloat64(data); !ok {
			return nil, f.fail(shape.CodeInvalid, nil)
		}
		s = fmt.Sprint(data)
	}
	if f.trim {
		s = strings.TrimSpace(s)
	}
	n := utf8.RuneCountInString(s)
	if f.maxLength != nil && n > *f.maxLength {
		return nil, f.fail(shape.CodeMaxLength, map[string]string{"max_length": strconv.Itoa(*f.maxLength)})
	}
	if f.minLength != nil && n < *f.minLength {
		return nil, f.fail(shape.CodeMinLength, map[string]string{"min_length": strconv.Itoa(*f.minLength)})
	}
	if f.check != nil && !f.check(s) {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	if f.normalize != nil {
		s = f.normalize(s)
	}
	return s, nil
}

func (f *CharField) ToRepresentation(_ context.Context, value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

// UUIDField accepts UUID strings in any common spelling and stores uuid.UUID values.
type UUIDField struct {
	*Base
	format string
}

// UUID returns a UUID field.
func UUID(opts ...Option) *UUIDField {
	b, o := newBase("uuid", opts, optUUIDFormat)
	f := &UUIDField{Base: b, format: o.uuidFormat}
	switch f.format {
	case "", "hex_verbose", "hex", "urn":
	default:
		b.errorf("unknown UUID format %q", f.format)
	}
	b.finish()
	return f
}

func (f *UUIDField) ToInternalValue(_ context.Context, data any) (any, error) {
	switch t := data.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		u, err := uuid.Parse(strings.TrimSpace(t))
		if err == nil {
			return u, nil
		}
	}
	return nil, f.fail(shape.CodeInvalid, nil)
}

func (f *UUIDField) ToRepresentation(ctx context.Context, value any) (any, error) {
	var u uuid.UUID
	switch t := value.(type) {
	case uuid.UUID:
		u = t
	case string:
		p, err := uuid.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("dsl: rendering uuid: %w", err)
		}
		u = p
	default:
		return nil, fmt.Errorf("dsl: cannot render %T as uuid", value)
	}
	format := f.format
	if format == "" {
		format = shape.SettingsFrom(ctx).UUIDFormat
	}
	switch format {
	case "hex":
		return strings.ReplaceAll(u.String(), "-", ""), nil
	case "urn":
		return u.URN(), nil
	default:
		return u.String(), nil
	}
}
